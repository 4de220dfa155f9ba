package biscuitblog_test

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]struct {
		Image    string   `yaml:"image"`
		Command  []string `yaml:"command"`
		Networks []string `yaml:"networks"`
	} `yaml:"services"`
	Networks map[string]struct {
		Internal bool `yaml:"internal"`
	} `yaml:"networks"`
}

func readDockerfile(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	return string(data)
}

func readCompose(t *testing.T) composeFile {
	t.Helper()
	data, err := os.ReadFile("docker-compose.yml")
	if err != nil {
		t.Fatalf("failed to read docker-compose.yml: %v", err)
	}
	var c composeFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		t.Fatalf("docker-compose.yml のパースに失敗: %v", err)
	}
	return c
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readDockerfile(t)

	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBuildsBinary(t *testing.T) {
	content := readDockerfile(t)

	if !strings.Contains(content, "./cmd/biscuitblog") {
		t.Error("Dockerfile should build ./cmd/biscuitblog")
	}
	if !strings.Contains(content, `ENTRYPOINT ["/app/biscuitblog"]`) {
		t.Error("Dockerfile should use the biscuitblog binary as ENTRYPOINT")
	}
	// WebPエンコーダとSQLiteはcgo必須
	if !strings.Contains(content, "CGO_ENABLED=1") {
		t.Error("Dockerfile should build with CGO_ENABLED=1")
	}
	if !strings.Contains(content, "healthcheck") {
		t.Error("Dockerfile should define a HEALTHCHECK using the healthcheck subcommand")
	}
}

func TestDockerComposeServices(t *testing.T) {
	c := readCompose(t)

	for _, name := range []string{"api", "worker", "db", "migrate"} {
		if _, ok := c.Services[name]; !ok {
			t.Errorf("docker-compose.yml should contain service %q", name)
		}
	}
	if img := c.Services["db"].Image; !strings.HasPrefix(img, "postgres:") {
		t.Errorf("db image = %q, want postgres:*", img)
	}

	commands := map[string]string{"api": "serve", "worker": "worker", "migrate": "migrate"}
	for svc, want := range commands {
		got := c.Services[svc].Command
		if len(got) == 0 || got[0] != want {
			t.Errorf("%s command = %v, want [%s]", svc, got, want)
		}
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	c := readCompose(t)

	if !c.Networks["backend"].Internal {
		t.Error("backend network should be internal: true")
	}
	if _, ok := c.Networks["external"]; !ok {
		t.Fatal("docker-compose.yml should define an external network")
	}

	has := func(svc, network string) bool {
		for _, n := range c.Services[svc].Networks {
			if n == network {
				return true
			}
		}
		return false
	}

	// 外部通信はGoogle OAuthとS3を使うapiのみ
	if !has("api", "external") {
		t.Error("api should join the external network")
	}
	for _, svc := range []string{"worker", "db", "migrate"} {
		if has(svc, "external") {
			t.Errorf("%s should not join the external network", svc)
		}
		if !has(svc, "backend") {
			t.Errorf("%s should join the backend network", svc)
		}
	}
}
