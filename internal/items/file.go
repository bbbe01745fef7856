package items

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/blin/zabby-agent/internal/errors"
)

func vfsFileMD5Sum(args []string) (interface{}, error) {
	path := arg(args, 0, "")
	if path == "" {
		return nil, &errors.WrongArgumentError{Key: "vfs.file.md5sum", Field: "path", Message: "path is required"}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.HostOSError{Operation: "open " + path, Err: err}
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, &errors.HostOSError{Operation: "read " + path, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
