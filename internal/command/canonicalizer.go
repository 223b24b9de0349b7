package command

import (
	"regexp"
	"strings"
)

// Canonicalizer maps raw docker/kubectl/docker-compose command strings to a
// stable canonical key so that mastery tracking survives syntax variations
// ("docker container ls" and "docker ps" are the same skill).
type Canonicalizer struct{}

func NewCanonicalizer() *Canonicalizer { return &Canonicalizer{} }

type pattern struct {
	key string
	res []*regexp.Regexp
}

func mustPatterns(key string, exprs ...string) pattern {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(e))
	}
	return pattern{key: key, res: res}
}

// Ordered: specific patterns must come before catch-alls (kubectl_get_pods
// before kubectl_get).
var dockerPatterns = []pattern{
	mustPatterns("docker_run", `^docker\s+run\b`, `^docker\s+container\s+run\b`),
	mustPatterns("docker_ps", `^docker\s+ps\b`, `^docker\s+container\s+ls\b`, `^docker\s+container\s+list\b`),
	mustPatterns("docker_stop", `^docker\s+stop\b`, `^docker\s+container\s+stop\b`),
	mustPatterns("docker_rm", `^docker\s+rm\b`, `^docker\s+container\s+rm\b`, `^docker\s+container\s+remove\b`),
	mustPatterns("docker_exec", `^docker\s+exec\b`, `^docker\s+container\s+exec\b`),
	mustPatterns("docker_logs", `^docker\s+logs\b`, `^docker\s+container\s+logs\b`),
	mustPatterns("docker_inspect", `^docker\s+inspect\b`, `^docker\s+container\s+inspect\b`),
	mustPatterns("docker_build", `^docker\s+build\b`, `^docker\s+image\s+build\b`),
	mustPatterns("docker_pull", `^docker\s+pull\b`, `^docker\s+image\s+pull\b`),
	mustPatterns("docker_push", `^docker\s+push\b`, `^docker\s+image\s+push\b`),
	mustPatterns("docker_images", `^docker\s+images\b`, `^docker\s+image\s+ls\b`, `^docker\s+image\s+list\b`),
	mustPatterns("docker_rmi", `^docker\s+rmi\b`, `^docker\s+image\s+rm\b`, `^docker\s+image\s+remove\b`),
	mustPatterns("docker_tag", `^docker\s+tag\b`, `^docker\s+image\s+tag\b`),
	mustPatterns("docker_volume_create", `^docker\s+volume\s+create\b`),
	mustPatterns("docker_volume_ls", `^docker\s+volume\s+ls\b`, `^docker\s+volume\s+list\b`),
	mustPatterns("docker_volume_rm", `^docker\s+volume\s+rm\b`, `^docker\s+volume\s+remove\b`),
	mustPatterns("docker_network_create", `^docker\s+network\s+create\b`),
	mustPatterns("docker_network_ls", `^docker\s+network\s+ls\b`, `^docker\s+network\s+list\b`),
	mustPatterns("docker_network_rm", `^docker\s+network\s+rm\b`, `^docker\s+network\s+remove\b`),
	mustPatterns("docker_compose_up", `^docker-compose\s+up\b`, `^docker\s+compose\s+up\b`),
	mustPatterns("docker_compose_down", `^docker-compose\s+down\b`, `^docker\s+compose\s+down\b`),
	mustPatterns("docker_compose_build", `^docker-compose\s+build\b`, `^docker\s+compose\s+build\b`),
	mustPatterns("docker_compose_ps", `^docker-compose\s+ps\b`, `^docker\s+compose\s+ps\b`),
}

var kubernetesPatterns = []pattern{
	mustPatterns("kubectl_get_pods", `^kubectl\s+get\s+pods?\b`, `^kubectl\s+get\s+po\b`),
	mustPatterns("kubectl_describe_pod", `^kubectl\s+describe\s+pods?\b`, `^kubectl\s+describe\s+po\b`),
	mustPatterns("kubectl_delete_pod", `^kubectl\s+delete\s+pods?\b`, `^kubectl\s+delete\s+po\b`),
	mustPatterns("kubectl_logs", `^kubectl\s+logs\b`),
	mustPatterns("kubectl_exec", `^kubectl\s+exec\b`),
	mustPatterns("kubectl_port_forward", `^kubectl\s+port-forward\b`),
	mustPatterns("kubectl_create_deployment", `^kubectl\s+create\s+deployment\b`, `^kubectl\s+create\s+deploy\b`),
	mustPatterns("kubectl_get_deployments", `^kubectl\s+get\s+deployments?\b`, `^kubectl\s+get\s+deploy\b`),
	mustPatterns("kubectl_scale", `^kubectl\s+scale\b`),
	mustPatterns("kubectl_rollout", `^kubectl\s+rollout\b`),
	mustPatterns("kubectl_set_image", `^kubectl\s+set\s+image\b`),
	mustPatterns("kubectl_expose", `^kubectl\s+expose\b`),
	mustPatterns("kubectl_get_services", `^kubectl\s+get\s+services?\b`, `^kubectl\s+get\s+svc\b`),
	mustPatterns("kubectl_create_configmap", `^kubectl\s+create\s+configmap\b`, `^kubectl\s+create\s+cm\b`),
	mustPatterns("kubectl_create_secret", `^kubectl\s+create\s+secret\b`),
	mustPatterns("kubectl_apply", `^kubectl\s+apply\b`),
	mustPatterns("kubectl_get", `^kubectl\s+get\b`),
	mustPatterns("kubectl_describe", `^kubectl\s+describe\b`),
	mustPatterns("kubectl_delete", `^kubectl\s+delete\b`),
	mustPatterns("kubectl_edit", `^kubectl\s+edit\b`),
}

var allPatterns = append(append([]pattern{}, dockerPatterns...), kubernetesPatterns...)

var wsRe = regexp.MustCompile(`\s+`)

// Canonicalize returns the canonical key for a raw command string, or "" when
// the input is blank or not recognizable as a tracked command.
func (c *Canonicalizer) Canonicalize(raw string) string {
	cleaned := normalize(raw)
	if cleaned == "" {
		return ""
	}
	for _, p := range allPatterns {
		for _, re := range p.res {
			if re.MatchString(cleaned) {
				return p.key
			}
		}
	}
	return extractBasicCanonical(cleaned)
}

// Valid reports whether a raw command string canonicalizes to a tracked key.
func (c *Canonicalizer) Valid(raw string) bool {
	return c.Canonicalize(raw) != ""
}

// Category returns the tool family for a canonical key.
func (c *Canonicalizer) Category(canonical string) string {
	switch {
	case canonical == "":
		return ""
	case strings.HasPrefix(canonical, "docker_compose_"):
		return "docker-compose"
	case strings.HasPrefix(canonical, "docker_"):
		return "docker"
	case strings.HasPrefix(canonical, "kubectl_"):
		return "kubernetes"
	default:
		return "other"
	}
}

// Label renders a canonical key as a human-readable title.
func (c *Canonicalizer) Label(canonical string) string {
	if canonical == "" {
		return ""
	}
	s := strings.ReplaceAll(canonical, "_", " ")
	s = strings.ReplaceAll(s, "docker compose", "docker-compose")
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// AnswerPatterns returns the regular expressions an answer for a canonical
// key must match. Keys without a curated pattern table get one derived from
// the key itself ("git_status" matches any "git status ..." invocation).
func (c *Canonicalizer) AnswerPatterns(canonical string) []string {
	if canonical == "" {
		return nil
	}
	for _, p := range allPatterns {
		if p.key != canonical {
			continue
		}
		out := make([]string, 0, len(p.res))
		for _, re := range p.res {
			out = append(out, re.String())
		}
		return out
	}
	return []string{`^` + strings.ReplaceAll(canonical, "_", `\s+`) + `\b`}
}

// CommandsForCategory lists every canonical key in a category.
func (c *Canonicalizer) CommandsForCategory(category string) []string {
	var out []string
	switch category {
	case "docker":
		for _, p := range dockerPatterns {
			if !strings.HasPrefix(p.key, "docker_compose_") {
				out = append(out, p.key)
			}
		}
	case "docker-compose":
		for _, p := range dockerPatterns {
			if strings.HasPrefix(p.key, "docker_compose_") {
				out = append(out, p.key)
			}
		}
	case "kubernetes":
		for _, p := range kubernetesPatterns {
			out = append(out, p.key)
		}
	}
	return out
}

var backtickRe = regexp.MustCompile("`([^`]+)`")

// ExtractCommands pulls canonical keys out of free text: inline code spans
// first, then any line mentioning docker or kubectl. Used when parsing a
// lesson's body into its required-command set.
func (c *Canonicalizer) ExtractCommands(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(raw string) {
		if key := c.Canonicalize(raw); key != "" && !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	for _, m := range backtickRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "docker") && !strings.Contains(lower, "kubectl") {
			continue
		}
		add(line)
	}
	return out
}

// Examples returns sample invocations for a canonical key, used to seed
// drill scenarios.
func (c *Canonicalizer) Examples(canonical string) []string {
	switch canonical {
	case "docker_run":
		return []string{"docker run nginx", "docker run -d -p 80:80 nginx", "docker container run --name web nginx"}
	case "docker_ps":
		return []string{"docker ps", "docker ps -a", "docker container ls"}
	case "docker_build":
		return []string{"docker build -t myapp .", "docker build -f Dockerfile.prod -t myapp:latest ."}
	case "kubectl_get_pods":
		return []string{"kubectl get pods", "kubectl get po -n default", "kubectl get pods --all-namespaces"}
	case "kubectl_apply":
		return []string{"kubectl apply -f deployment.yaml", "kubectl apply -f ./k8s/", "kubectl apply -f https://example.com/manifest.yaml"}
	default:
		return nil
	}
}

func normalize(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "\\\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\n", " ")
	return wsRe.ReplaceAllString(cleaned, " ")
}

// extractBasicCanonical guesses a key for inputs no explicit pattern covers,
// from the first two or three tokens.
func extractBasicCanonical(cleaned string) string {
	parts := strings.Fields(cleaned)
	if len(parts) == 0 {
		return ""
	}
	switch parts[0] {
	case "docker":
		if len(parts) >= 2 && parts[1] == "compose" {
			if len(parts) >= 3 {
				return "docker_compose_" + parts[2]
			}
			return ""
		}
		if len(parts) >= 3 {
			return "docker_" + parts[1] + "_" + parts[2]
		}
		if len(parts) >= 2 {
			return "docker_" + parts[1]
		}
	case "kubectl":
		if len(parts) >= 3 {
			return "kubectl_" + parts[1] + "_" + parts[2]
		}
		if len(parts) >= 2 {
			return "kubectl_" + parts[1]
		}
	case "docker-compose":
		if len(parts) >= 2 {
			return "docker_compose_" + parts[1]
		}
	}
	return ""
}
