package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "stats":
		return statsTemplate, nil
	case "frame":
		return frameTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const statsTemplate = `name = "renderframe-stats"
addr = ":9300"
cors_origins = ["https://github.localhost"]
formats = ["mermaid"]
history = 256
`

const frameTemplate = `addr = ":9200"
host_suffix = "github.localhost"
format = "mermaid"
docs_hostname = "https://docs.github.com"
render_url = "http://localhost:9300"
client_timeout_attempts = 3
load_timeout = "30s"
debounce = "200ms"
width = 1012
cors_origins = ["https://github.localhost"]

[engine]
binary = "mmdc"
theme = "default"
timeout = "20s"
`
