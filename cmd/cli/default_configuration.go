package cli

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigurationDecodeErrorTemplate = "decode built-in configuration: %w"
	defaultListSeparatorConstant            = ","
)

// defaultConfigurationDocument is layered beneath configuration files and the environment.
//
//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the built-in release train
// configuration and its viper config type.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}

// DefaultApplicationConfiguration decodes the built-in configuration alone, without
// consulting configuration files or the environment.
func DefaultApplicationConfiguration() (ApplicationConfiguration, error) {
	document, documentType := EmbeddedDefaultConfiguration()
	viperInstance := viper.New()
	viperInstance.SetConfigType(documentType)
	if readError := viperInstance.ReadConfig(bytes.NewReader(document)); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(defaultConfigurationDecodeErrorTemplate, readError)
	}

	var configuration ApplicationConfiguration
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(defaultListSeparatorConstant),
	))
	if decodeError := viperInstance.Unmarshal(&configuration, decodeHook); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(defaultConfigurationDecodeErrorTemplate, decodeError)
	}
	return configuration, nil
}
