// Package dataprocessing detects the structure of raw sales workbooks and
// normalizes them onto the unified field set.
//
// Reading is two-phase. A workbook is first read with no header assumption and
// probed for its header row (DetectHeaderRow); the rows below it are then
// mapped column by column through the ingest Profile. The header tokens,
// column aliases and legacy offsets all live in the embedded profile.yaml, so
// a new publication vintage is a data change.
//
// Each normalized file is written to the stage directory as CSV holding the
// unified fields as uninterpreted text:
//
//	profile, _ := dataprocessing.LoadProfile("")
//	n := dataprocessing.NewNormalizer(profile, logger)
//	res, err := n.NormalizeDir(ctx, paths.RawDir, paths.StageDir)
//
// ReadStageDir concatenates the stage files, in name order, for cleaning.
package dataprocessing
