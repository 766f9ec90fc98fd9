package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
	"github.com/abdul-hamid-achik/hitpad/packages/core/workspace"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
	"github.com/abdul-hamid-achik/hitpad/packages/import/curl"
	"github.com/abdul-hamid-achik/hitpad/packages/import/insomnia"
	"github.com/abdul-hamid-achik/hitpad/packages/import/openapi"
)

var (
	importOutFlag        string
	importFromFlag       string
	importBaseURLFlag    string
	importTagsFlag       []string
	importOperationsFlag []string
	importEnvsFlag       bool
)

var importCmd = &cobra.Command{
	Use:   "import <file|url|->",
	Short: "Convert curl commands, Insomnia exports or OpenAPI documents into request files",
	Long: `Convert requests from another tool into YAML request files under --out.

Sources:
  curl      One curl command per line. Lines ending in a backslash continue;
            blank lines and lines starting with # are skipped.
  insomnia  An Insomnia v4 JSON export. Folders become subdirectories. With
            --environments its environments are saved as hitpad environments.
  openapi   An OpenAPI 3 document, from a file or URL. Every URL starts with
            {{baseUrl}}; with --env the document's server URL is stored as
            baseUrl in that environment, creating it when missing.

The source is detected from the content unless --from is given. Use - to
read from stdin.

Examples:
  hitpad import requests.sh --out requests/
  hitpad import insomnia.json --environments
  hitpad import https://api.example.com/openapi.yaml --tag users --env dev
  pbpaste | hitpad import -`,
	Args: cobra.ExactArgs(1),
	RunE: importCommand,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importOutFlag, "out", "requests", "Directory for the generated request files")
	f.StringVar(&importFromFlag, "from", "", "Source format: curl, insomnia, openapi (default: detect)")
	f.StringVar(&importBaseURLFlag, "base-url", "", "Override the OpenAPI server URL")
	f.StringArrayVar(&importTagsFlag, "tag", nil, "Only import OpenAPI operations with this tag (repeatable)")
	f.StringArrayVar(&importOperationsFlag, "operation", nil, "Only import this OpenAPI operation ID (repeatable)")
	f.BoolVar(&importEnvsFlag, "environments", false, "Save Insomnia environments into the environment database")
}

// importedRequest is a draft and the file path it goes to, relative to --out
// and without extension.
type importedRequest struct {
	path  string
	draft *http.Draft
	note  string
}

// importedEnv is an environment the source wants stored.
type importedEnv struct {
	name    string
	vars    []kv.Pair
	baseURL string
}

func importCommand(cmd *cobra.Command, args []string) error {
	source := args[0]
	var data []byte
	if !isRemote(source) {
		var err error
		data, err = readSource(cmd, source)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	from := strings.ToLower(importFromFlag)
	if from == "" {
		from = detectFormat(source, data)
	}

	var (
		requests []importedRequest
		envs     []importedEnv
		err      error
	)
	switch from {
	case "curl":
		requests, err = importCurl(data)
	case "insomnia":
		requests, envs, err = importInsomnia(data)
	case "openapi":
		requests, envs, err = importOpenAPI(cmd, source, data)
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown --from %q (curl, insomnia, openapi)", importFromFlag))
	}
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(requests) == 0 {
		return withExitCode(ExitUsageError, errors.New("no requests found"))
	}

	used := make(map[string]int)
	for _, r := range requests {
		name := r.path
		used[name]++
		if n := used[name]; n > 1 {
			name += "_" + strconv.Itoa(n)
		}
		path, err := http.SaveDraft(r.draft, filepath.Join(importOutFlag, filepath.FromSlash(name)+".yaml"))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
		if r.note != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "  note: %s\n", r.note)
		}
	}

	if len(envs) > 0 {
		return storeImportedEnvironments(cmd, envs)
	}
	return nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func readSource(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", source, err)
	}
	return data, nil
}

// detectFormat sniffs the first bytes of the source.
func detectFormat(source string, data []byte) string {
	if isRemote(source) {
		return "openapi"
	}
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	switch {
	case bytes.Contains(head, []byte(`"_type"`)) && bytes.Contains(head, []byte(`"export"`)):
		return "insomnia"
	case bytes.Contains(head, []byte("openapi:")) || bytes.Contains(head, []byte(`"openapi"`)):
		return "openapi"
	default:
		return "curl"
	}
}

func importCurl(data []byte) ([]importedRequest, error) {
	commands, err := curl.ParseAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]importedRequest, len(commands))
	for i, c := range commands {
		out[i] = importedRequest{path: c.Name(), draft: c.Draft}
		if c.Insecure || c.FollowRedirects {
			out[i].note = "-k and -L are client settings; use --insecure or the followRedirects config"
		}
	}
	return out, nil
}

func importInsomnia(data []byte) ([]importedRequest, []importedEnv, error) {
	col, err := insomnia.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	requests := make([]importedRequest, len(col.Requests))
	for i, r := range col.Requests {
		requests[i] = importedRequest{path: r.FileName(), draft: r.Draft}
	}
	if !importEnvsFlag {
		return requests, nil, nil
	}
	envs := make([]importedEnv, len(col.Environments))
	for i, e := range col.Environments {
		envs[i] = importedEnv{name: e.Name, vars: e.Variables}
	}
	return requests, envs, nil
}

func importOpenAPI(cmd *cobra.Command, source string, data []byte) ([]importedRequest, []importedEnv, error) {
	var (
		doc *openapi3.T
		err error
	)
	if source == "-" {
		doc, err = openapi.Parse(cmd.Context(), data)
	} else {
		// Loading by location resolves relative $refs
		doc, err = openapi.Load(cmd.Context(), source)
	}
	if err != nil {
		return nil, nil, err
	}

	col := openapi.NewConverter(
		openapi.WithBaseURL(importBaseURLFlag),
		openapi.WithTags(importTagsFlag),
		openapi.WithOperations(importOperationsFlag),
	).Convert(cmd.Context(), doc)
	if col.Invalid != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s: %v\n", source, col.Invalid)
	}

	requests := make([]importedRequest, len(col.Requests))
	for i, r := range col.Requests {
		requests[i] = importedRequest{path: r.Name, draft: r.Draft}
	}

	var envs []importedEnv
	if envFlag != "" && col.BaseURL != "" {
		envs = append(envs, importedEnv{
			name:    envFlag,
			vars:    []kv.Pair{{Key: openapi.BaseURLVariable, Value: col.BaseURL}},
			baseURL: col.BaseURL,
		})
	} else if col.BaseURL != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Set the base URL with: hitpad env set <name> %s=%s\n", openapi.BaseURLVariable, col.BaseURL)
	}
	return requests, envs, nil
}

// storeImportedEnvironments creates missing environments and sets the
// imported variables on them.
func storeImportedEnvironments(cmd *cobra.Command, envs []importedEnv) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The target may not exist yet, so it is not activated
	cfg.DefaultEnvironment = ""

	s, err := openSession(cfg, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	for _, e := range envs {
		b, err := s.ws.EnvironmentByName(e.name)
		if errors.Is(err, workspace.ErrUnknownEnvironment) {
			b, err = s.ws.CreateEnvironment(e.name)
		}
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}

		updated := b.Clone()
		for _, p := range e.vars {
			updated.Set(p.Key, p.Value)
		}
		if e.baseURL != "" {
			updated.SetBaseURL(e.baseURL)
		}
		if err := s.ws.SaveEnvironment(updated); err != nil {
			return withExitCode(ExitConfigError, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved environment %s (%d variables)\n", e.name, len(updated.Variables))
	}
	return nil
}
