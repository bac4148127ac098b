package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestMain points the configuration and cache directories at a temporary
// directory. Both are resolved once per process.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cflat-cli-test-*")
	if err != nil {
		panic(err)
	}

	os.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	os.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	code := m.Run()

	os.RemoveAll(dir)
	os.Exit(code)
}

func TestRun_Build(t *testing.T) {
	dir := t.TempDir()

	lib := filepath.Join(dir, "lib")
	if err := os.Mkdir(lib, 0o700); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(lib, "twice.cb"),
		[]byte("twice :: (i32 a) -> i32 {\n\treturn a * 2;\n}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(dir, "main.cb")
	if err := os.WriteFile(src,
		[]byte("include \"twice\";\nmain :: () -> i32 {\n\treturn twice(4);\n}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "main.go")

	exited := -1

	err := Run(context.Background(), func(code int) { exited = code },
		"--log-level=error", "build", "-I", lib, "-o", out, src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if exited != -1 {
		t.Errorf("exit called with %d", exited)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(data), "func twice(a int32) int32 {") {
		t.Errorf("generated program missing included method:\n%s", data)
	}
}

func TestRun_EnvFile(t *testing.T) {
	dir := t.TempDir()

	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("CFLAT_TEST_ENV_FILE=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(dir, "main.cb")
	if err := os.WriteFile(src, []byte("main :: () { }\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CFLAT_TEST_ENV_FILE", "")
	os.Unsetenv("CFLAT_TEST_ENV_FILE")

	err := Run(context.Background(), func(int) {},
		"--env-file", env, "tokens", src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := os.Getenv("CFLAT_TEST_ENV_FILE"); got != "loaded" {
		t.Errorf("CFLAT_TEST_ENV_FILE = %q, want loaded", got)
	}
}

func TestLogConfig_Scan(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantLevel  logLevel
		wantFormat logFormat
		wantPretty bool
		wantCaller bool
	}{
		{
			name:       "defaults",
			args:       []string{"run", "song.cb"},
			wantPretty: true,
		},
		{
			name:       "assigned",
			args:       []string{"--log-level=debug", "--log-format=json", "--log-pretty=false"},
			wantLevel:  "debug",
			wantFormat: "json",
		},
		{
			name:       "separate values",
			args:       []string{"--log-level", "trace", "build", "--log-caller"},
			wantLevel:  "trace",
			wantPretty: true,
			wantCaller: true,
		},
		{
			name: "negated",
			args: []string{"--no-log-pretty", "--no-log-caller=false"},
			// --no-log-caller=false enables the caller.
			wantCaller: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := logConfig{Pretty: true}
			f.scan(tt.args)

			if f.Level != tt.wantLevel || f.Format != tt.wantFormat ||
				f.Pretty != tt.wantPretty || f.Caller != tt.wantCaller {
				t.Errorf("scan(%q) = %+v", tt.args, f)
			}
		})
	}
}
