package services

import (
	"fmt"
	"os"

	"ecomission/internal/models"

	"gopkg.in/yaml.v3"
)

const assetBaseURL = "https://mobile-reple.s3.ap-northeast-2.amazonaws.com"

var defaultIcons = map[models.MissionCategory]string{
	models.CategoryPublicTransportation: assetBaseURL + "/icons/fc7b54f9-6360-4d31-87a1-7151d7099c39.png",
	models.CategoryEtc:                  assetBaseURL + "/icons/2351f119-f70f-461e-b552-abdb621cffe1.png",
	models.CategoryRecycling:            assetBaseURL + "/icons/d02cd5a5-4469-4efb-bf7e-1191a3594383.png",
	models.CategoryTumbler:              assetBaseURL + "/icons/de7b9a05-1d2f-4588-8835-db6fd8593f3c.png",
}

var defaultBanners = map[models.MissionKind]string{
	models.MissionKindScheduled: assetBaseURL + "/banners/011e06d1-3d95-4a66-a4b7-9a2ffcf14280.png",
	models.MissionKindEvent:     assetBaseURL + "/banners/537500d1-4fe2-4f06-9cf3-38e46ed87d64.png",
}

// StaticIconResolver resolves asset URLs from fixed maps
type StaticIconResolver struct {
	icons   map[models.MissionCategory]string
	banners map[models.MissionKind]string
}

// IconMapFile is the YAML layout accepted by LoadIconResolver
type IconMapFile struct {
	Icons   map[string]string `yaml:"icons"`
	Banners map[string]string `yaml:"banners"`
}

// NewStaticIconResolver creates a resolver; nil maps fall back to the built-in assets
func NewStaticIconResolver(icons map[models.MissionCategory]string, banners map[models.MissionKind]string) *StaticIconResolver {
	if icons == nil {
		icons = defaultIcons
	}
	if banners == nil {
		banners = defaultBanners
	}
	return &StaticIconResolver{icons: icons, banners: banners}
}

// DefaultIconResolver returns the resolver over the built-in asset URLs
func DefaultIconResolver() *StaticIconResolver {
	return NewStaticIconResolver(nil, nil)
}

// LoadIconResolver reads overrides from a YAML file on top of the built-in map.
// An empty path yields the built-in resolver.
func LoadIconResolver(path string) (*StaticIconResolver, error) {
	if path == "" {
		return DefaultIconResolver(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read icon map: %w", err)
	}

	var file IconMapFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse icon map %s: %w", path, err)
	}

	icons := make(map[models.MissionCategory]string, len(defaultIcons))
	for k, v := range defaultIcons {
		icons[k] = v
	}
	for name, url := range file.Icons {
		category := models.MissionCategory(name)
		if !category.IsKnown() {
			return nil, fmt.Errorf("icon map %s: unknown category %q", path, name)
		}
		icons[category] = url
	}

	banners := make(map[models.MissionKind]string, len(defaultBanners))
	for k, v := range defaultBanners {
		banners[k] = v
	}
	for name, url := range file.Banners {
		kind, ok := models.ParseMissionKind(name)
		if !ok {
			return nil, fmt.Errorf("icon map %s: unknown mission kind %q", path, name)
		}
		banners[kind] = url
	}

	return NewStaticIconResolver(icons, banners), nil
}

// ResolveIcon returns the icon URL of a category
func (r *StaticIconResolver) ResolveIcon(category models.MissionCategory) (string, bool) {
	url, ok := r.icons[category]
	return url, ok && url != ""
}

// ResolveBanner returns the banner URL of a mission kind
func (r *StaticIconResolver) ResolveBanner(kind models.MissionKind) (string, bool) {
	url, ok := r.banners[kind]
	return url, ok && url != ""
}
