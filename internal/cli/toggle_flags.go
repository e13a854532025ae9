package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "toggle"
	toggleFlagTrueLiteral    = "true"
	toggleFlagAcceptedValues = "true, false, yes, no, on, off, 1, 0"
)

var toggleFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// toggleFlagValue is a boolean flag that also accepts yes/no style literals,
// either attached with "=" or as the following argument.
type toggleFlagValue struct {
	target *bool
	name   string
}

func (value *toggleFlagValue) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = toggleFlagTrueLiteral
	}
	parsed, ok := toggleFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf("invalid value %q for --%s; accepted values: %s", input, value.name, toggleFlagAcceptedValues)
	}
	*value.target = parsed
	return nil
}

func (value *toggleFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleFlagValue) Type() string {
	return toggleFlagTypeName
}

func registerToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&toggleFlagValue{target: target, name: name}, name, usage)
	if flag := flagSet.Lookup(name); flag != nil {
		flag.DefValue = strconv.FormatBool(defaultValue)
		flag.NoOptDefVal = toggleFlagTrueLiteral
	}
}

// normalizeToggleArguments joins "--flag value" pairs into "--flag=value" for
// toggle flags when value is a boolean literal. Any other following argument is
// left alone so that "--copy Main.java" keeps Main.java positional.
func normalizeToggleArguments(command *cobra.Command, arguments []string) []string {
	toggles := map[string]struct{}{}
	collectToggleFlagNames(command, toggles)
	if len(toggles) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			return append(normalized, arguments[index:]...)
		}
		name, isLongFlag := strings.CutPrefix(argument, "--")
		if isLongFlag && !strings.Contains(name, "=") && index+1 < len(arguments) {
			if _, toggle := toggles[name]; toggle {
				literal := strings.ToLower(strings.TrimSpace(arguments[index+1]))
				if _, known := toggleFlagLiterals[literal]; known {
					normalized = append(normalized, fmt.Sprintf("--%s=%s", name, arguments[index+1]))
					index++
					continue
				}
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func collectToggleFlagNames(command *cobra.Command, names map[string]struct{}) {
	if command == nil {
		return
	}
	visit := func(flag *pflag.Flag) {
		if flag.Value != nil && flag.Value.Type() == toggleFlagTypeName {
			names[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(visit)
	command.Flags().VisitAll(visit)
	for _, child := range command.Commands() {
		collectToggleFlagNames(child, names)
	}
}
