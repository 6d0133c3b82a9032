package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"gopkg.in/ini.v1"
)

const ProfilesFileName = ".umamicfg"

// Registry reads named settings sections from an INI profiles file, e.g.
//
//	[docs]
//	umami_website_id = 3f2c...
//	umami_timezone   = Asia/Shanghai
type Registry interface {
	GetProfiles(ctx context.Context) ([]domain.ConfigProfile, error)
	GetProfile(ctx context.Context, profile string) (map[string]any, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

// DefaultProfilesPath is $HOME/.umamicfg.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ProfilesFileName
	}
	return filepath.Join(home, ProfilesFileName)
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]domain.ConfigProfile, error) {
	var profiles []domain.ConfigProfile
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		profiles = append(profiles, domain.ConfigProfile{
			Name:      section.Name(),
			WebsiteID: section.Key(strings.ToLower(KeyWebsiteID)).String(),
			BaseURL:   section.Key(strings.ToLower(KeyBaseURL)).String(),
		})
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, profile string) (map[string]any, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	values := make(map[string]any, len(section.Keys()))
	for _, key := range section.Keys() {
		values[strings.ToLower(key.Name())] = key.String()
	}
	return values, nil
}
