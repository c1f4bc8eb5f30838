package database

import "testing"

func TestMongoDatabaseName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/huellas", "huellas"},
		{"mongodb+srv://u:p@cluster0.x.mongodb.net/registro?retryWrites=true", "registro"},
		{"mongodb://localhost:27017", defaultMongoDatabase},
		{"mongodb://localhost:27017/?tls=true", defaultMongoDatabase},
	}
	for _, tt := range tests {
		if got := MongoDatabaseName(tt.uri); got != tt.want {
			t.Errorf("MongoDatabaseName(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
