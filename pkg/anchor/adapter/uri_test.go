package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURI(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "host, port and db",
			cfg:  Config{Host: "h", Port: 27017, DB: "d"},
			want: "mongodb://h:27017/d",
		},
		{
			name: "database alias",
			cfg:  Config{Host: "h", Port: 27018, Database: "d"},
			want: "mongodb://h:27018/d",
		},
		{
			name: "default host and port",
			cfg:  Config{DB: "d"},
			want: "mongodb://127.0.0.1:27017/d",
		},
		{
			name: "url path replaced by db",
			cfg:  Config{URL: "mongodb://h:27017/old", DB: "new"},
			want: "mongodb://h:27017/new",
		},
		{
			name: "url query preserved",
			cfg:  Config{URL: "mongodb://h:27017/old?x=1", DB: "new"},
			want: "mongodb://h:27017/new?x=1",
		},
		{
			name: "url verbatim without db",
			cfg:  Config{URL: "mongodb://h:27017/old?x=1"},
			want: "mongodb://h:27017/old?x=1",
		},
		{
			name: "url wins over host",
			cfg:  Config{URL: "mongodb://u:p@a:1,b:2/old", Host: "ignored", DB: "new"},
			want: "mongodb://u:p@a:1,b:2/new",
		},
		{
			name: "url without path",
			cfg:  Config{URL: "mongodb+srv://cluster.example.net", DB: "app"},
			want: "mongodb+srv://cluster.example.net/app",
		},
		{
			name: "url without path with query",
			cfg:  Config{URL: "mongodb://a,b?replicaSet=rs", DB: "app"},
			want: "mongodb://a,b/app?replicaSet=rs",
		},
		{
			name: "url with empty path",
			cfg:  Config{URL: "mongodb://h/?w=majority", DB: "app"},
			want: "mongodb://h/app?w=majority",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURI("mongodb", tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildURI_MissingDatabase(t *testing.T) {
	_, err := BuildURI("mongodb", Config{Host: "h", Port: 27017})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "No db name nor url provided")
}

func TestHideCredentials(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mongodb://user:secret@h:27017/d", "mongodb://***:***@h:27017/d"},
		{"mongodb://h:27017/d", "mongodb://h:27017/d"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HideCredentials(tt.in))
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "empty", cfg: Config{}, want: "mongoose"},
		{name: "db", cfg: Config{DB: "x"}, want: "mongoose_x"},
		{name: "db and instance", cfg: Config{DB: "x", Instance: "1"}, want: "mongoose_x_1"},
		{name: "connection name", cfg: Config{DB: "x", ConnectionName: "primary"}, want: "primary"},
		{
			name: "field order",
			cfg:  Config{Instance: "i", URL: "mongodb://h", Database: "y", DB: "x"},
			want: "mongoose_x_y_mongodb://h_i",
		},
		{name: "host is not part of the key", cfg: Config{Host: "h", Port: 1}, want: "mongoose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key("mongoose", tt.cfg))
		})
	}
}

func TestMerge(t *testing.T) {
	base := Config{Host: "common", Port: 27017, DB: "base"}

	assert.Equal(t, base, Merge(base, nil))
	assert.Equal(t,
		Config{Host: "common", Port: 27018, DB: "override", SkipConnect: true},
		Merge(base, &Config{Port: 27018, DB: "override", SkipConnect: true}),
	)
}
