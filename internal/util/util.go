package util

import (
	"embed"
	_ "embed"
	"encoding/base32"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/replicate/go/httpclient"
	"github.com/replicate/go/must"
	"github.com/replicate/go/uuid"
	"gopkg.in/yaml.v3"
)

// Manifest is the optional atlas.yaml project file in the dataset root.
type Manifest struct {
	Data struct {
		RegionsDir    string `yaml:"regions_dir"`
		Analytics     string `yaml:"analytics"`
		Organizations string `yaml:"organizations"`
	} `yaml:"data"`
	Thresholds struct {
		Alert float64 `yaml:"alert"`
		OK    float64 `yaml:"ok"`
	} `yaml:"thresholds"`
	Notify struct {
		Webhook string `yaml:"webhook"`
	} `yaml:"notify"`
}

// ReadManifest loads atlas.yaml from dir. A missing file yields a zero
// manifest, any other read or parse failure is an error.
func ReadManifest(dir string) (*Manifest, error) {
	var m Manifest
	bs, err := os.ReadFile(filepath.Join(dir, "atlas.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return &m, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(bs, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SnapshotID returns a short sortable identifier for a dataset snapshot.
func SnapshotID() string {
	u := must.Get(uuid.NewV7())
	shuffle := make([]byte, uuid.Size)
	for i := 0; i < 4; i++ {
		shuffle[i], shuffle[i+4], shuffle[i+8], shuffle[i+12] = u[i+12], u[i+4], u[i], u[i+8]
	}
	encoding := base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)
	return encoding.EncodeToString(shuffle)
}

const TimeLayout = "2006-01-02T15:04:05.999999-07:00"

func NowIso() string {
	return time.Now().UTC().Format(TimeLayout)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Wildcard match in case version.txt is not generated yet
//
//go:embed *
var embedFS embed.FS

func Version() string {
	bs, err := embedFS.ReadFile("version.txt")
	if err != nil {
		return "0.0.0+unknown"
	}
	return strings.TrimSpace(string(bs))
}

func HTTPClientWithRetry() *http.Client {
	return httpclient.ApplyRetryPolicy(http.DefaultClient)
}
