package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/simplest/internal/logging"
)

// bindFlags binds each flag to its viper key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if flag := flags.Lookup(name); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}

// addFlagValidation makes setting the flag fail when validator rejects the
// value.
func addFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(flagName)
	}
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", s)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}
	return nil
}

func validateLogLevel(s string) error {
	_, err := logging.ParseLevel(s)
	return err
}

func validateLogFormat(s string) error {
	if s != "text" && s != "json" {
		return fmt.Errorf("unsupported log format: %s (supported: text, json)", s)
	}
	return nil
}

func validateUpstream(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("proxy must be an http(s) URL, got %q", s)
	}
	return nil
}
