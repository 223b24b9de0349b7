package command

import (
	"reflect"
	"regexp"
	"testing"
)

func TestCanonicalizeDockerVariations(t *testing.T) {
	c := NewCanonicalizer()
	cases := []struct {
		raw  string
		want string
	}{
		{"docker run nginx", "docker_run"},
		{"docker container run nginx", "docker_run"},
		{"docker run -d -p 8080:80 nginx", "docker_run"},
		{"docker ps", "docker_ps"},
		{"docker ps -a", "docker_ps"},
		{"docker container ls", "docker_ps"},
		{"docker container list", "docker_ps"},
		{"docker stop container123", "docker_stop"},
		{"docker stop --time=10 app", "docker_stop"},
		{"docker build -t myimage:tag .", "docker_build"},
		{"docker image build --tag app .", "docker_build"},
		{"docker pull registry.com/image", "docker_pull"},
		{"docker image pull nginx:latest", "docker_pull"},
		{"docker exec -it container bash", "docker_exec"},
		{"docker rmi old:tag", "docker_rmi"},
		{"docker image rm old:tag", "docker_rmi"},
		{"docker volume ls", "docker_volume_ls"},
		{"docker network create mynet", "docker_network_create"},
		{"docker-compose up", "docker_compose_up"},
		{"docker compose up -d", "docker_compose_up"},
		{"docker-compose down", "docker_compose_down"},
		{"DOCKER RUN nginx", "docker_run"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := c.Canonicalize(tc.raw); got != tc.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeKubectlVariations(t *testing.T) {
	c := NewCanonicalizer()
	cases := []struct {
		raw  string
		want string
	}{
		{"kubectl get pods", "kubectl_get_pods"},
		{"kubectl get pod", "kubectl_get_pods"},
		{"kubectl get po -n default", "kubectl_get_pods"},
		{"kubectl describe pod mypod", "kubectl_describe_pod"},
		{"kubectl apply -f file.yaml", "kubectl_apply"},
		{"kubectl apply --filename=manifest.yml", "kubectl_apply"},
		{"kubectl delete pod mypod", "kubectl_delete_pod"},
		{"kubectl delete -f file.yaml", "kubectl_delete"},
		{"kubectl get deploy", "kubectl_get_deployments"},
		{"kubectl get svc", "kubectl_get_services"},
		{"kubectl port-forward svc/web 8080:80", "kubectl_port_forward"},
		{"kubectl rollout restart deployment/web", "kubectl_rollout"},
		{"kubectl create configmap app-config --from-file=.", "kubectl_create_configmap"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := c.Canonicalize(tc.raw); got != tc.want {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeEdgeCases(t *testing.T) {
	c := NewCanonicalizer()

	if got := c.Canonicalize(""); got != "" {
		t.Fatalf("empty input should not canonicalize, got %q", got)
	}
	if got := c.Canonicalize("unknown command"); got != "" {
		t.Fatalf("unrecognized input should not canonicalize, got %q", got)
	}
	if got := c.Canonicalize("  docker   run   nginx  "); got != "docker_run" {
		t.Fatalf("extra whitespace not handled, got %q", got)
	}
	if got := c.Canonicalize("docker run \\\n  -p 8080:80 \\\n  nginx"); got != "docker_run" {
		t.Fatalf("line continuations not handled, got %q", got)
	}
	// Uncatalogued but well-formed subcommands fall back to token extraction.
	if got := c.Canonicalize("docker system prune"); got != "docker_system_prune" {
		t.Fatalf("basic extraction failed, got %q", got)
	}
	if got := c.Canonicalize("kubectl top nodes"); got != "kubectl_top_nodes" {
		t.Fatalf("basic extraction failed, got %q", got)
	}
}

func TestCategory(t *testing.T) {
	c := NewCanonicalizer()
	cases := []struct {
		key  string
		want string
	}{
		{"docker_run", "docker"},
		{"docker_compose_up", "docker-compose"},
		{"kubectl_get_pods", "kubernetes"},
		{"helm_install", "other"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := c.Category(tc.key); got != tc.want {
			t.Fatalf("Category(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestLabel(t *testing.T) {
	c := NewCanonicalizer()
	if got := c.Label("docker_run"); got != "Docker Run" {
		t.Fatalf("Label(docker_run) = %q", got)
	}
	if got := c.Label("kubectl_get_pods"); got != "Kubectl Get Pods" {
		t.Fatalf("Label(kubectl_get_pods) = %q", got)
	}
	if got := c.Label("docker_compose_up"); got != "Docker-compose Up" {
		t.Fatalf("Label(docker_compose_up) = %q", got)
	}
}

func TestExtractCommands(t *testing.T) {
	c := NewCanonicalizer()
	text := "First start a container with `docker run nginx`.\n" +
		"Then check it: kubectl get pods\n" +
		"Run `docker run -d nginx` again if needed.\n" +
		"Unrelated prose about containers.\n"
	got := c.ExtractCommands(text)
	want := []string{"docker_run", "kubectl_get_pods"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractCommands = %v, want %v", got, want)
	}
	if got := c.ExtractCommands("   "); got != nil {
		t.Fatalf("blank text should yield nil, got %v", got)
	}
}

func TestCommandsForCategory(t *testing.T) {
	c := NewCanonicalizer()
	for _, key := range c.CommandsForCategory("docker-compose") {
		if c.Category(key) != "docker-compose" {
			t.Fatalf("unexpected key %q in docker-compose category", key)
		}
	}
	docker := c.CommandsForCategory("docker")
	for _, key := range docker {
		if c.Category(key) != "docker" {
			t.Fatalf("unexpected key %q in docker category", key)
		}
	}
	if len(docker) == 0 || len(c.CommandsForCategory("kubernetes")) == 0 {
		t.Fatal("expected non-empty category listings")
	}
	if got := c.CommandsForCategory("terraform"); got != nil {
		t.Fatalf("unknown category should be empty, got %v", got)
	}
}

func TestAnswerPatterns(t *testing.T) {
	c := NewCanonicalizer()

	curated := c.AnswerPatterns("docker_ps")
	if len(curated) < 2 {
		t.Fatalf("docker_ps patterns = %v, want the curated set", curated)
	}
	matched := false
	for _, expr := range curated {
		if regexp.MustCompile(expr).MatchString("docker container ls") {
			matched = true
		}
	}
	if !matched {
		t.Fatal("no docker_ps pattern matched the container ls alias")
	}

	derived := c.AnswerPatterns("git_status")
	if len(derived) != 1 {
		t.Fatalf("derived patterns = %v, want one", derived)
	}
	re := regexp.MustCompile(derived[0])
	if !re.MatchString("git status --short") {
		t.Fatalf("derived pattern %q should match a git status invocation", derived[0])
	}
	if re.MatchString("git stash") {
		t.Fatalf("derived pattern %q must not match other subcommands", derived[0])
	}

	if got := c.AnswerPatterns(""); got != nil {
		t.Fatalf("blank key should yield nil, got %v", got)
	}
}
