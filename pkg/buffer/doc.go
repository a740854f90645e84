// Package buffer provides the two sample buffers a participant pipeline needs.
//
//   - Buffer: a growable FIFO with blocking reads. One writer appends while a
//     reader drains; CloseWrite lets the reader finish what was written and
//     then observe io.EOF. CloseWithError aborts both sides.
//
//   - Ring: a fixed-capacity window that overwrites the oldest elements. It
//     keeps the most recent audio so a capture can start slightly before the
//     moment it was opened.
//
// Both are safe for concurrent use.
package buffer
