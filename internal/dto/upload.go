package dto

// Upload is the raw inbound image as handed over by the transport.
type Upload struct {
	Data         []byte
	DeclaredType string
	Size         int64
	Caption      string
}
