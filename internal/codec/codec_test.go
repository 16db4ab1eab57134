package codec

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dashv/internal/domain"
)

func sampleServices() []domain.Service {
	return []domain.Service{{
		ID:            "101-8096",
		Name:          "jellyfin",
		URL:           "http://10.10.10.50:8096",
		Icon:          "🎬",
		ContainerName: "jellyfin-lxc",
		ContainerKind: domain.WorkloadKindContainer,
		ContainerID:   101,
		Port:          8096,
		IP:            "10.10.10.50",
		LastUpdated:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Origin:        domain.OriginDiscovered,
	}}
}

func TestExporterFor(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "json"},
		{"json", "json"},
		{"YAML", "yaml"},
		{"yml", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := ExporterFor(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Format())
		})
	}

	_, err := ExporterFor("ansible")
	assert.Error(t, err)
}

func TestJSONCodec_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(sampleServices(), &buf))

	var doc struct {
		Services []map[string]any `json:"services"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Services, 1)
	assert.Equal(t, "101-8096", doc.Services[0]["id"])
	assert.Equal(t, "lxc", doc.Services[0]["containerType"])
}

func TestJSONCodec_ExportEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(nil, &buf))
	assert.JSONEq(t, `{"services": []}`, buf.String())
}

func TestYAMLCodec_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLCodec().Export(sampleServices(), &buf))

	var doc struct {
		Services []map[string]any `yaml:"services"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Services, 1)
	assert.Equal(t, "jellyfin-lxc", doc.Services[0]["container_name"])
	assert.Equal(t, 8096, doc.Services[0]["port"])
}

func TestYAMLCodec_ParseCatalog(t *testing.T) {
	doc := `
ports:
  - pattern: " Gitea "
    ports: [3000, 2222]
default_ports: [8080]
`
	c, err := NewYAMLCodec().ParseCatalog(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []int{3000, 2222}, c.MatchPorts("my-gitea"))
	assert.Equal(t, []int{8080}, c.MatchPorts("unknown"))
	// icons were not given, the built-in table is kept
	assert.Equal(t, domain.DefaultCatalog().IconRules, c.IconRules)
	assert.Equal(t, domain.DefaultIcon, c.DefaultIcon)
}

func TestYAMLCodec_ParseCatalogRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"bad port":      "ports:\n  - pattern: x\n    ports: [70000]\n",
		"unknown field": "portz: []\n",
		"not yaml":      "ports: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewYAMLCodec().ParseCatalog(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCatalog(), c)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_ports: [9000]\n"), 0o644))
	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []int{9000}, c.DefaultPorts)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
