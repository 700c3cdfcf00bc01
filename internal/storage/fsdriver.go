package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// FSDriver implements Backend over a local filesystem rooted at Base. It
// exists so the engine can be exercised and tested without credentials,
// mirroring the prior direct os/filepath file helpers.
type FSDriver struct {
	Base string
}

// NewFSDriver returns a filesystem-rooted backend. The root is created if
// it does not already exist.
func NewFSDriver(base string) (*FSDriver, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSDriver{Base: base}, nil
}

func (d *FSDriver) resolve(path string) string {
	return filepath.Join(d.Base, filepath.FromSlash(path))
}

func (d *FSDriver) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(d.resolve(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, wrapFSErr(err)
}

func (d *FSDriver) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(path))
	if err != nil {
		return nil, wrapFSErr(err)
	}
	return data, nil
}

func (d *FSDriver) Write(ctx context.Context, localPath, path string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return wrapFSErr(err)
	}
	return d.WriteBytes(ctx, data, path)
}

func (d *FSDriver) WriteBytes(ctx context.Context, data []byte, path string) error {
	dst := d.resolve(path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return wrapFSErr(err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return wrapFSErr(err)
	}
	return nil
}

func (d *FSDriver) Delete(ctx context.Context, path string) error {
	err := os.Remove(d.resolve(path))
	if err != nil && !os.IsNotExist(err) {
		return wrapFSErr(err)
	}
	return nil
}

func (d *FSDriver) List(ctx context.Context, prefix, suffix string) ([]string, error) {
	root := d.resolve(prefix)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapFSErr(err)
	}

	var names []string
	if !info.IsDir() {
		return nil, nil
	}

	err = filepath.Walk(root, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if suffix == "" || strings.HasSuffix(rel, suffix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, wrapFSErr(err)
	}
	sort.Strings(names)
	return names, nil
}

func (d *FSDriver) PullTree(ctx context.Context, remotePrefix, localDir string) ([]string, error) {
	rels, err := d.List(ctx, remotePrefix, "")
	if err != nil {
		return nil, err
	}
	var pulled []string
	for _, rel := range rels {
		data, err := d.Read(ctx, remotePrefix+"/"+rel)
		if err != nil {
			return pulled, err
		}
		dst := filepath.Join(localDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return pulled, err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return pulled, err
		}
		pulled = append(pulled, rel)
	}
	return pulled, nil
}

func (d *FSDriver) PushTree(ctx context.Context, localDir, remotePrefix string) ([]string, error) {
	var pushed []string
	err := filepath.Walk(localDir, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if err := d.Write(ctx, p, remotePrefix+"/"+rel); err != nil {
			return err
		}
		pushed = append(pushed, rel)
		return nil
	})
	if err != nil {
		return pushed, wrapFSErr(err)
	}
	return pushed, nil
}

func (d *FSDriver) Copy(ctx context.Context, src, dst string) error {
	srcPath := d.resolve(src)
	dstPath := d.resolve(dst)

	in, err := os.Open(srcPath)
	if err != nil {
		return wrapFSErr(err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return wrapFSErr(err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return wrapFSErr(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return wrapFSErr(err)
	}
	return out.Sync()
}

func (d *FSDriver) Describe() map[string]string {
	return map[string]string{
		"type": "local",
		"path": d.Base,
	}
}

func wrapFSErr(err error) error {
	if os.IsNotExist(err) {
		logrus.Debugf("storage(fs): not found: %v", err)
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}
