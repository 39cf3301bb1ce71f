package trace

//go:generate go run github.com/dmarkham/enumer -type Kind -trimprefix Kind -transform lower -json -output kind.gen.go

// Kind classifies what a span measures.
type Kind int

const (
	KindDB Kind = iota
	KindHTTP
	KindApp
)
