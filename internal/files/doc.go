// Package files discovers staged files and writes outputs atomically.
//
// Every file the ETL produces goes through WriteAtomic: content is written to a
// temp file next to the destination and renamed over it on success, so a
// crashed or failed run never leaves a half-written file at the final path.
package files
