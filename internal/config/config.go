package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/exit"
	"github.com/AbhinavRai30/api-framework/internal/httpclient"
	"github.com/AbhinavRai30/api-framework/internal/logging"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultEnvFile is loaded when present and no --env-file is given.
	DefaultEnvFile = ".env"

	// DatabaseURLEnv names the environment variable offered to suites as
	// the database_url variable.
	DatabaseURLEnv = "DATABASE_URL"

	OutputText = "text"
	OutputJSON = "json"
)

var (
	ErrNoArguments           = errors.New("no arguments provided")
	ErrNoTestFiles           = errors.New("no suite files specified")
	ErrInvalidSecretFormat   = errors.New("secret must be in format name=value")
	ErrEmptySecretName       = errors.New("secret name cannot be empty")
	ErrInvalidVariableFormat = errors.New("variable must be in format name=value")
	ErrEmptyVariableName     = errors.New("variable name cannot be empty")
	ErrInvalidOutput         = errors.New("output must be text or json")
	ErrInvalidRateLimit      = errors.New("rate limit cannot be negative")
)

// Config represents the complete configuration of a suite run.
type Config struct {
	// Suite execution
	TestFiles   []string
	Debug       bool
	Repeat      int // Additional iterations after first run (negative = infinite)
	IncludeTags []string
	Equality    compare.Equality

	// HTTP client configuration
	Insecure       bool
	CACertFile     string
	RequestTimeout time.Duration
	RateLimit      float64 // Requests per second (0 = unlimited)

	// Template variables
	Secrets     map[string]string
	SecretFile  string
	Variables   map[string]string
	EnvFile     string
	DatabaseURL string

	// Output
	Output   string
	LogLevel slog.Level
}

// TLSConfig returns a TLS configuration based on the config settings.
func (c *Config) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.Insecure,
	}

	if c.CACertFile != "" {
		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}

		caCert, err := os.ReadFile(c.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", c.CACertFile, err)
		}

		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", c.CACertFile)
		}

		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// AllVariables returns the variables suites start with. Secrets take
// priority over variables when keys conflict.
func (c *Config) AllVariables() map[string]string {
	combined := make(map[string]string)

	maps.Copy(combined, c.Variables)
	maps.Copy(combined, c.Secrets)

	return combined
}

// SecretValues lists the secret values to redact from debug output.
func (c *Config) SecretValues() []string {
	values := make([]string, 0, len(c.Secrets))
	for _, k := range slices.Sorted(maps.Keys(c.Secrets)) {
		if v := c.Secrets[k]; v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.TestFiles) == 0 {
		return ErrNoTestFiles
	}

	for _, file := range c.TestFiles {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("suite file %s not found: %w", file, err)
		}
	}

	if c.CACertFile != "" {
		if _, err := os.Stat(c.CACertFile); err != nil {
			return fmt.Errorf("CA certificate file %s not found: %w", c.CACertFile, err)
		}
	}

	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("%w, got: %s", ErrInvalidOutput, c.Output)
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	return nil
}

// pairsFlag implements flag.Value for repeatable name=value flags.
type pairsFlag struct {
	values    map[string]string
	errFormat error
	errName   error
}

func newSecretsFlag() *pairsFlag {
	return &pairsFlag{values: make(map[string]string), errFormat: ErrInvalidSecretFormat, errName: ErrEmptySecretName}
}

func newVariablesFlag() *pairsFlag {
	return &pairsFlag{values: make(map[string]string), errFormat: ErrInvalidVariableFormat, errName: ErrEmptyVariableName}
}

func (p *pairsFlag) String() string {
	if p == nil {
		return ""
	}
	pairs := make([]string, 0, len(p.values))
	for _, k := range slices.Sorted(maps.Keys(p.values)) {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, p.values[k]))
	}
	return strings.Join(pairs, ",")
}

func (p *pairsFlag) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("%w, got: %s", p.errFormat, value)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return p.errName
	}

	p.values[name] = val
	return nil
}

// tagsFlag collects repeatable --include-tag values.
type tagsFlag []string

func (t *tagsFlag) String() string {
	return strings.Join(*t, ",")
}

func (t *tagsFlag) Set(value string) error {
	for tag := range strings.SplitSeq(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}
	return nil
}

// Parse parses command-line arguments and returns a validated Config.
// If parsing fails or help is requested, returns nil config and exit result.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)

	// Suppress the default usage output since we handle it ourselves
	fs.Usage = func() {}
	// Suppress error output since we handle it ourselves
	fs.SetOutput(io.Discard)

	var (
		debug        = fs.Bool("debug", false, "Enable debug output showing request and response details")
		repeat       = fs.Int("repeat", 0, "Number of additional times to repeat suite execution after the first run (negative for infinite loop)")
		insecure     = fs.Bool("insecure", false, "Skip TLS certificate verification")
		caCertFile   = fs.String("cacert", "", "Path to CA certificate file for TLS verification")
		secrets      = newSecretsFlag()
		secretFile   = fs.String("secret-file", "", "Path to key=value file containing secrets")
		variables    = newVariablesFlag()
		variableFile = fs.String("variable-file", "", "Path to key=value file containing template variables")
		envFile      = fs.String("env-file", "", "Path to .env file providing DATABASE_URL")
		timeout      = fs.Duration("timeout", DefaultTimeout, "HTTP request timeout")
		rateLimit    = fs.Float64("rate-limit", 0, "Rate limit in requests per second (0 for unlimited)")
		equality     = fs.String("equality", "strict", "Scalar equality: strict or lenient")
		output       = fs.String("output", OutputText, "Output format: text or json")
		logLevel     = fs.String("log-level", "info", "Log level: debug, info, warn or error")
		tags         tagsFlag
	)

	fs.Var(secrets, "secret", "Secret in format name=value (can be used multiple times)")
	fs.Var(variables, "variable", "Variable in format name=value (can be used multiple times)")
	fs.Var(&tags, "include-tag", "Only run tests carrying this tag (can be used multiple times)")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Usagef("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	// Get remaining positional arguments as suite files
	files := fs.Args()
	if len(files) == 0 {
		return nil, exit.Usagef("Error: %v\n\n%s", ErrNoTestFiles, Usage())
	}

	eq, err := compare.ParseEquality(*equality)
	if err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}

	// File variables first, then command-line variables
	var finalVariables map[string]string
	if *variableFile != "" {
		fileVariables, err := loadVariableFile(*variableFile)
		if err != nil {
			return nil, exit.Usagef("Error: failed to load variable file: %v\n\n%s", err, Usage())
		}
		finalVariables = make(map[string]string)
		maps.Copy(finalVariables, fileVariables)
	}

	if len(variables.values) > 0 {
		if finalVariables == nil {
			finalVariables = make(map[string]string)
		}
		maps.Copy(finalVariables, variables.values)
	}

	finalSecrets := make(map[string]string)
	if *secretFile != "" {
		fileSecrets, err := loadVariableFile(*secretFile)
		if err != nil {
			return nil, exit.Usagef("Error: failed to load secret file: %v\n\n%s", err, Usage())
		}
		maps.Copy(finalSecrets, fileSecrets)
	}
	maps.Copy(finalSecrets, secrets.values)

	envPath, databaseURL, err := resolveDatabaseURL(*envFile)
	if err != nil {
		return nil, exit.Usagef("Error: failed to load env file: %v\n\n%s", err, Usage())
	}

	config := &Config{
		TestFiles:      files,
		Debug:          *debug,
		Repeat:         *repeat,
		IncludeTags:    tags,
		Equality:       eq,
		Insecure:       *insecure,
		CACertFile:     *caCertFile,
		RequestTimeout: *timeout,
		RateLimit:      *rateLimit,
		Secrets:        finalSecrets,
		SecretFile:     *secretFile,
		Variables:      finalVariables,
		EnvFile:        envPath,
		DatabaseURL:    databaseURL,
		Output:         *output,
		LogLevel:       level,
	}

	if err := config.Validate(); err != nil {
		return nil, exit.Usagef("Error: %v\n\n%s", err, Usage())
	}

	return config, nil
}

// loadVariableFile loads variables from a key=value format file. Comments,
// quoting and export prefixes follow dotenv rules.
func loadVariableFile(filename string) (map[string]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	defer f.Close()

	variables, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}

	for key := range variables {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("empty key in %s", filename)
		}
	}

	return variables, nil
}

// resolveDatabaseURL reads DATABASE_URL from the process environment,
// falling back to the env file. An explicit env file must exist; the
// default one is optional. The env file is never exported into the process.
func resolveDatabaseURL(envFile string) (string, string, error) {
	path := envFile
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			path = DefaultEnvFile
		}
	}

	var fromFile map[string]string
	if path != "" {
		env, err := godotenv.Read(path)
		if err != nil {
			return "", "", err
		}
		fromFile = env
	}

	if url, ok := os.LookupEnv(DatabaseURLEnv); ok && url != "" {
		return path, url, nil
	}
	return path, fromFile[DatabaseURLEnv], nil
}

// Usage returns a usage string for the CLI tool.
func Usage() string {
	return `apikw - keyword-driven API, database and spreadsheet test runner

Usage: apikw [options] <suite1.yaml> [suite2.yaml] ...

Options:
  --debug                 Enable debug output showing request and response details
  --repeat N              Number of additional times to repeat after first run (negative for infinite)
  --include-tag TAG       Only run tests carrying TAG (can be used multiple times)
  --equality MODE         Scalar equality: strict (default) or lenient
  --insecure              Skip TLS certificate verification
  --cacert FILE           Path to CA certificate file for TLS verification
  --timeout DURATION      HTTP request timeout (default: 30s)
  --rate-limit N          Rate limit in requests per second (0 for unlimited)
  --secret NAME=VALUE     Secret in format name=value (can be used multiple times)
  --secret-file FILE      Path to key=value file containing secrets
  --variable NAME=VALUE   Variable in format name=value (can be used multiple times)
  --variable-file FILE    Path to key=value file containing template variables
  --env-file FILE         Path to .env file providing DATABASE_URL (default: .env when present)
  --output FORMAT         Result format: text (default) or json
  --log-level LEVEL       Log level: debug, info (default), warn or error
  -h, --help              Show this help message

Exit codes:
  0  every test passed
  1  a test failed or errored
  2  invalid invocation

Examples:
  apikw films.yaml                           # Run a suite once
  apikw films.yaml --debug                   # Run with request and response dumps
  apikw films.yaml --include-tag smoke       # Run only tests tagged smoke
  apikw films.yaml --repeat 1                # Run twice (1 + 1 additional)
  apikw films.yaml --equality lenient        # Compare 5 and "5" as equal
  apikw films.yaml db.yaml --output json     # Run two suites, JSON results
  apikw films.yaml --secret API_KEY=secret   # Pass secret to the suite
  apikw films.yaml --variable base_url=http://localhost:8000`
}

// HTTPClient creates an HTTP client configured with the settings from this Config.
func (c *Config) HTTPClient() (*http.Client, error) {
	tlsConfig, err := c.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
	}

	return httpclient.New(httpclient.Options{
		TLS:     tlsConfig,
		Timeout: c.RequestTimeout,
	}), nil
}
