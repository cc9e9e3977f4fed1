// Package codec implements the framed, position-typed message codec
// that carries both connection-control and application traffic between
// peers: a Chunk writer that appends null-terminated strings, raw
// sub-chunk copies, and fixed-width values in sequence, and a Stream
// reader that walks the same sequence back out. There are no type tags
// on the wire — the sub-tag string matched by a Stream's IsNextTag
// implicitly fixes the schema of whatever follows it.
package codec
