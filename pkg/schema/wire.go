package schema

// DeployRequest carries construction arguments over the TCP and HTTP transports.
// Metadata is base64 encoded on the wire.
type DeployRequest struct {
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
	Birthday  uint64 `json:"birthday"`
	Metadata  []byte `json:"metadata"`
}

// DeployResponse returns the new record's ID.
type DeployResponse struct {
	ID string `json:"id"`
}

// NameResponse is the caller-dependent display name.
type NameResponse struct {
	Name string `json:"name"`
}

// ActiveResponse reports the activation flag.
type ActiveResponse struct {
	Active bool `json:"active"`
}

// MetadataResponse carries the owner's metadata, base64 encoded on the wire.
type MetadataResponse struct {
	Metadata []byte `json:"metadata"`
}

// ErrorResponse is the body of every failed HTTP call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
