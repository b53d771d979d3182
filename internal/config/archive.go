package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// ArchiveConfig points at the S3-compatible bucket that receives
// console transcripts after each run. It lives in an optional
// [archive] section of the same INI file as the targets.
type ArchiveConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// LoadArchive reads the [archive] section from the INI file. It
// returns nil without error when the file or the section is absent,
// since transcript archiving is opt-in.
func LoadArchive(iniFile string) (*ArchiveConfig, error) {
	if iniFile == "" {
		return nil, nil
	}
	file, err := ini.LooseLoad(iniFile)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", iniFile, err)
	}
	if !file.HasSection("archive") {
		return nil, nil
	}
	section := file.Section("archive")
	cfg := &ArchiveConfig{
		Endpoint:  section.Key("endpoint").String(),
		Region:    section.Key("region").MustString("us-east-1"),
		Bucket:    section.Key("bucket").String(),
		AccessKey: section.Key("access_key").String(),
		SecretKey: section.Key("secret_key").String(),
	}

	var missing []string
	for key, value := range map[string]string{
		"endpoint":   cfg.Endpoint,
		"bucket":     cfg.Bucket,
		"access_key": cfg.AccessKey,
		"secret_key": cfg.SecretKey,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, "archive."+key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ConfigurationError{Missing: missing}
	}
	return cfg, nil
}
