package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/styles"
)

const (
	// ConfigFileName is the name of the JSON project file.
	ConfigFileName = "sitepack.json"

	// YAMLConfigFileName is the name of the YAML project file.
	YAMLConfigFileName = "sitepack.yaml"

	// DefaultPort is the default development server port.
	DefaultPort = 8080

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultSource is the default page and asset source directory.
	DefaultSource = "app"

	// DefaultPublish is the default production output directory.
	DefaultPublish = "doc"

	// DefaultTarget is the default script language level for production builds.
	DefaultTarget = "es2015"
)

// fileNames lists the project file names in lookup order.
var fileNames = []string{ConfigFileName, YAMLConfigFileName, "sitepack.yml"}

// Config represents a complete project file.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Source is the directory holding the page templates.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// PageExt is the page template extension.
	PageExt string `json:"pageExt,omitempty" yaml:"pageExt,omitempty"`

	// Entry is the script entry point.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`

	// Styles configures the style transforms.
	Styles StylesConfig `json:"styles,omitempty" yaml:"styles,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty" yaml:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty"`

	// Deploy contains publish upload configuration.
	Deploy DeployConfig `json:"deploy,omitempty" yaml:"deploy,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// root is the project directory when no project file exists.
	root string
}

// StylesConfig configures the style chain.
type StylesConfig struct {
	// Transforms are the style transforms applied in order.
	Transforms []string `json:"transforms,omitempty" yaml:"transforms,omitempty"`

	// Browsers are the esbuild engine targets used for vendor prefixing.
	Browsers []string `json:"browsers,omitempty" yaml:"browsers,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Output is the directory the in-place bundle is written to.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Filename is the bundle file name.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Hot enables hot reload. Nil means enabled.
	Hot *bool `json:"hot,omitempty" yaml:"hot,omitempty"`

	// Watch contains glob patterns of extra files that trigger a rebuild.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the publish directory.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Filename is the entry script name pattern.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// ChunkFilename is the split chunk name pattern.
	ChunkFilename string `json:"chunkFilename,omitempty" yaml:"chunkFilename,omitempty"`

	// CSSFilename is the extracted style name pattern.
	CSSFilename string `json:"cssFilename,omitempty" yaml:"cssFilename,omitempty"`

	// CSSChunkFilename is the extracted style chunk name pattern.
	CSSChunkFilename string `json:"cssChunkFilename,omitempty" yaml:"cssChunkFilename,omitempty"`

	// Target is the script language level output is lowered to.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// Images is the image directory copied after a successful build.
	Images string `json:"images,omitempty" yaml:"images,omitempty"`

	// ImagesOut is the images destination, relative to Output.
	ImagesOut string `json:"imagesOut,omitempty" yaml:"imagesOut,omitempty"`

	// SourceMaps enables linked source maps.
	SourceMaps bool `json:"sourceMaps,omitempty" yaml:"sourceMaps,omitempty"`
}

// DeployConfig contains publish upload settings.
type DeployConfig struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region overrides the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Concurrency bounds parallel uploads.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Source:  DefaultSource,
		PageExt: ".html",
		Entry:   "app/assets/scripts/scripts.js",
		Styles: StylesConfig{
			Transforms: []string{"import", "simple-vars", "nested", "mixins", "autoprefixer"},
			Browsers:   []string{"chrome58", "firefox57", "safari11", "edge16"},
		},
		Dev: DevConfig{
			Output:   DefaultSource,
			Filename: "bundled.js",
			Host:     DefaultHost,
			Port:     DefaultPort,
			Watch:    []string{"app/**/*.html"},
		},
		Build: BuildConfig{
			Output:           DefaultPublish,
			Filename:         "[name].[hash].js",
			ChunkFilename:    "[name].[hash].js",
			CSSFilename:      "[name].[hash].css",
			CSSChunkFilename: "[name].[hash].css",
			Target:           DefaultTarget,
			Images:           "app/assets/images",
			ImagesOut:        "assets/images",
		},
		Deploy: DeployConfig{
			Concurrency: 8,
		},
	}
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No sitepack.json or sitepack.yaml found in " + dir).
		WithSuggestion("Create sitepack.json or run sitepack from the project root")
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No project file at " + path)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	loaded := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, loaded)
	} else {
		err = json.Unmarshal(data, loaded)
	}
	if err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is well formed")
	}

	if err := mergo.Merge(loaded, New()); err != nil {
		return nil, errors.New("E101").Wrap(err)
	}
	loaded.configPath = path

	return loaded, nil
}

// Defaults returns the default configuration rooted at dir, for projects
// without a project file.
func Defaults(dir string) *Config {
	cfg := New()
	cfg.root = dir
	return cfg
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path. The format follows
// the file extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E103").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E103").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project directory.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return c.root
	}
	return filepath.Dir(c.configPath)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E102").
			WithDetail("dev.port must be between 0 and 65535, got " + strconv.Itoa(c.Dev.Port))
	}
	if strings.TrimSpace(c.Entry) == "" {
		return errors.New("E102").
			WithDetail("entry must name the script entry point")
	}
	if !strings.HasPrefix(c.PageExt, ".") {
		return errors.New("E102").
			WithDetail("pageExt must start with a dot, got " + strconv.Quote(c.PageExt))
	}
	if c.Deploy.Concurrency < 0 {
		return errors.New("E102").
			WithDetail("deploy.concurrency must not be negative")
	}
	for _, t := range c.Styles.Transforms {
		if !styles.Known(t) {
			return errors.New("E124").
				WithDetail("Unknown style transform " + strconv.Quote(t)).
				WithSuggestion("Supported transforms: import, simple-vars, nested, mixins, autoprefixer, minify")
		}
	}
	return nil
}

// HotReload reports whether hot reload is enabled.
func (c *Config) HotReload() bool {
	return c.Dev.Hot == nil || *c.Dev.Hot
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// SourcePath returns the absolute path to the page directory.
func (c *Config) SourcePath() string {
	return c.resolve(c.Source)
}

// EntryPath returns the absolute path to the script entry point.
func (c *Config) EntryPath() string {
	return c.resolve(c.Entry)
}

// DevOutputPath returns the absolute path to the in-place bundle directory.
func (c *Config) DevOutputPath() string {
	return c.resolve(c.Dev.Output)
}

// PublishPath returns the absolute path to the publish directory.
func (c *Config) PublishPath() string {
	return c.resolve(c.Build.Output)
}

// ImagesPath returns the absolute path to the image directory.
func (c *Config) ImagesPath() string {
	return c.resolve(c.Build.Images)
}

// ImagesOutPath returns the absolute path the images are copied to.
func (c *Config) ImagesOutPath() string {
	if filepath.IsAbs(c.Build.ImagesOut) {
		return c.Build.ImagesOut
	}
	return filepath.Join(c.PublishPath(), c.Build.ImagesOut)
}

// WatchPatterns returns the dev watch globs resolved against the project
// directory, in slash form.
func (c *Config) WatchPatterns() []string {
	patterns := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		patterns = append(patterns, filepath.ToSlash(c.resolve(p)))
	}
	return patterns
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a project file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a project file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No project file found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration for the current working directory.
// Without a project file it falls back to Defaults rooted at the working
// directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return Defaults(wd), nil
	}

	return Load(root)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
