package rt

import "embed"

// Sources holds the files of this package that generated programs build
// against.
//
//go:embed doc.go arena.go note.go scale.go seq.go api.go run.go
var Sources embed.FS
