package testsource

import (
	"context"
	"fmt"

	"judgeengine/internal/model"
)

// ConfigResolver resolves a problem reference to {bucket key, encryption
// key} using one shared encryption key and a fixed key-naming convention,
// mirroring original_source/coderunners/services.py's
// "/mnt/efs/{problem}.gz.fer" path pattern translated to an object key.
type ConfigResolver struct {
	KeyPrefix     string
	EncryptionKey []byte
}

func NewConfigResolver(keyPrefix string, encryptionKey []byte) ConfigResolver {
	return ConfigResolver{KeyPrefix: keyPrefix, EncryptionKey: encryptionKey}
}

func (r ConfigResolver) Resolve(ctx context.Context, problem string) (model.ProblemMeta, error) {
	if problem == "" {
		return model.ProblemMeta{}, fmt.Errorf("testsource: empty problem reference")
	}
	return model.ProblemMeta{
		Key:           fmt.Sprintf("%s%s.bin", r.KeyPrefix, problem),
		EncryptionKey: r.EncryptionKey,
	}, nil
}
