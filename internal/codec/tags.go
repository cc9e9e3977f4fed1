package codec

// Reserved top-level tags. Every message begins with one of these as
// its first string item.
const (
	TagControl     = "~"
	TagApplication = "-"
)
