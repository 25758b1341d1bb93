package core

// UploadMetadata describes an exported journal file.
type UploadMetadata struct {
	Server   string
	Events   int
	Duration float64 // seconds between the first and last entry
	Tag      string
}
