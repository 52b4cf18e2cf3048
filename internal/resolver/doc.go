// Package resolver maps loosely typed user input to exactly one existing
// video file.
//
// Strategies run in priority order and stop at the first success:
//
//  1. Direct file: the expanded input names an existing regular file.
//  2. Directory scan: the input names a directory; its recognized video
//     files are listed non-recursively in name order. One match is returned
//     as is, several go through the Chooser.
//  3. Fuzzy search: the input is a caseless substring of file names found by
//     walking the configured search roots. Matches keep traversal order, are
//     deduplicated by physical file, and always go through the Chooser.
//  4. Otherwise the result is services.ErrNotFound.
package resolver
