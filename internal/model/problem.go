package model

// ProblemMeta resolves an opaque SubmissionRequest.Problem key to the
// location and decryption material of its test bundle.
type ProblemMeta struct {
	Key           string
	EncryptionKey []byte
}
