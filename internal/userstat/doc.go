// Package userstat computes disk usage per owning user.
//
// It walks a directory tree with fastwalk, attributes every regular file's
// size to the directory containing it under the file owner's name, and then
// folds the totals bottom-up so that each directory holds, per user, the sum
// of that user's files anywhere in its subtree.
package userstat
