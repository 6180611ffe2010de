package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		names []string
		bools []string
		want  []string
	}{
		{
			name:  "separate value",
			args:  []string{"-c", "conf.json", "-dsn", "x.db"},
			names: []string{"c"},
			want:  []string{"-c", "conf.json"},
		},
		{
			name:  "equals form and double dash",
			args:  []string{"--config=conf.toml", "-v"},
			names: []string{"config"},
			want:  []string{"--config=conf.toml"},
		},
		{
			name:  "value that looks like a flag is not consumed",
			args:  []string{"-dsn", "-kdf", "argon2id"},
			names: []string{"dsn", "kdf"},
			want:  []string{"-dsn", "-kdf", "argon2id"},
		},
		{
			name:  "bool flag never takes the next argument",
			args:  []string{"-version", "extra", "-driver", "sqlite"},
			names: []string{"driver"},
			bools: []string{"version"},
			want:  []string{"-version", "-driver", "sqlite"},
		},
		{
			name:  "positional and bare dashes ignored",
			args:  []string{"run", "-", "--", "-c", "a.json"},
			names: []string{"c"},
			want:  []string{"-c", "a.json"},
		},
		{
			name:  "nothing allowed",
			args:  []string{"-c", "a.json"},
			names: nil,
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.names, tt.bools...))
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "a.json", ConfigFile([]string{"-dsn", "x.db", "-c", "a.json"}))
	assert.Equal(t, "b.toml", ConfigFile([]string{"-config=b.toml"}))
	assert.Equal(t, "", ConfigFile([]string{"-dsn", "x.db"}))
}
