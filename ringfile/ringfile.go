package ringfile

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	cbor "github.com/fxamacker/cbor/v2"

	"slotring/registry"
	"slotring/ring"
)

type blob struct {
	Registry *registry.State `cbor:"registry"`
	Ring     *ring.State     `cbor:"ring"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	encMode, decMode = em, dm
}

// Write serializes reg and rg to w. The ring may be unbuilt; its empty
// snapshot list round-trips as such.
func Write(w io.Writer, reg *registry.Registry, rg *ring.Ring) error {
	data, err := encMode.Marshal(&blob{Registry: reg.State(), Ring: rg.State()})
	if err != nil {
		return fmt.Errorf("ringfile: encode: %w", err)
	}
	gz := gzip.NewWriter(w)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("ringfile: write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("ringfile: write: %w", err)
	}
	return nil
}

// Read restores a registry and ring from a blob produced by Write.
func Read(r io.Reader) (*registry.Registry, *ring.Ring, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ringfile: read: %w", err)
	}
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, fmt.Errorf("ringfile: read: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, nil, fmt.Errorf("ringfile: read: %w", err)
	}

	var b blob
	if err := decMode.Unmarshal(data, &b); err != nil {
		return nil, nil, fmt.Errorf("ringfile: decode: %w", err)
	}
	if b.Registry == nil || b.Ring == nil {
		return nil, nil, fmt.Errorf("ringfile: blob is missing registry or ring state")
	}
	reg, err := registry.FromState(b.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("ringfile: restore registry: %w", err)
	}
	rg, err := ring.Restore(reg, b.Ring)
	if err != nil {
		return nil, nil, fmt.Errorf("ringfile: restore ring: %w", err)
	}
	return reg, rg, nil
}

// Save writes reg and rg to path via a temp file in the same directory,
// renamed into place once fully written.
func Save(path string, reg *registry.Registry, rg *ring.Ring) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("ringfile: save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, reg, rg); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ringfile: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ringfile: save: %w", err)
	}
	return nil
}

// Load restores a registry and ring from the file at path.
func Load(path string) (*registry.Registry, *ring.Ring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ringfile: load: %w", err)
	}
	defer f.Close()
	return Read(f)
}
