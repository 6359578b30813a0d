package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "serial9", "serial":
		return serialTemplate, nil
	case "tcp":
		return tcpTemplate, nil
	case "emulator":
		return emulatorTemplate, nil
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

const serialTemplate = `id = "serial9.local"
transport = "serial"
# empty port picks the first Pro Micro (2341:8036)
port = ""
baud = 115200
read_timeout = "20ms"
poll_interval = "10ms"
bridge_baud = "9600"
admin_addr = "127.0.0.1:7090"
cors_origins = ["http://localhost:3000"]
`

const tcpTemplate = `id = "serial9.remote"
transport = "tcp"
addr = "raspberrypi:7091"
dial_attempts = 5
read_timeout = "20ms"
poll_interval = "10ms"
admin_addr = "127.0.0.1:7090"
admin_token = ""
cors_origins = ["http://localhost:3000"]

[tls]
enabled = false
ca_file = ""
cert_file = ""
key_file = ""
server_name = ""
`

const emulatorTemplate = `id = "serial9.emulator"
transport = "emulator"
emulator_baud = "9600"
poll_interval = "10ms"
admin_addr = "127.0.0.1:7090"
cors_origins = ["http://localhost:3000"]
`
