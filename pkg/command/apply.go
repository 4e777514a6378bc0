package command

import (
	"github.com/arthur-debert/metaini/pkg/dotdict"
	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/escapes"
	"github.com/arthur-debert/metaini/pkg/logging"
)

// ExpandCommand is the name of the built-in expansion command. Its
// invocations are applied even when their key is not present in the first
// configuration.
const ExpandCommand = "expand"

// Apply runs invs in order over configs and returns the resulting
// configuration list.
//
// An invocation whose key is absent from the first configuration is
// skipped: the key may have been filtered away. Commands returning
// configurations replace the whole list, commands returning a value
// rewrite their key in every configuration, the others run once per
// configuration for their side effects.
func Apply(configs []*dotdict.Tree, invs []Invocation, reg *Registry, queue *Queue) ([]*dotdict.Tree, error) {
	logger := logging.GetLogger("command.apply")

	for _, inv := range invs {
		if len(configs) == 0 {
			return configs, nil
		}
		if inv.Name != ExpandCommand && !configs[0].HasValue(inv.Key) {
			logger.Trace().Str("invocation", inv.String()).Msg("Key gone, skipping")
			continue
		}

		cmd, err := reg.Get(inv.Name)
		if err != nil {
			return nil, annotate(err, inv)
		}
		args, err := cmd.bindArgs(inv.Args)
		if err != nil {
			return nil, annotate(err, inv)
		}

		logger.Trace().
			Str("invocation", inv.String()).
			Str("mode", cmd.Mode()).
			Int("configs", len(configs)).
			Msg("Applying command")

		switch {
		case cmd.ReturnsConfigs:
			res, err := cmd.Run(&Context{Key: inv.Key, Args: args, Configs: configs, Queue: queue})
			if err != nil {
				return nil, annotate(err, inv)
			}
			configs = res.Configs

		default:
			for _, c := range configs {
				value, err := c.Get(inv.Key)
				if err != nil {
					continue
				}
				res, err := cmd.Run(&Context{
					Key:     inv.Key,
					Value:   value,
					Args:    args,
					Config:  c,
					Configs: configs,
					Queue:   queue,
				})
				if err != nil {
					return nil, annotate(err, inv)
				}
				if cmd.ReturnsValue {
					if err := c.Set(inv.Key, res.Value); err != nil {
						return nil, annotate(err, inv)
					}
				}
			}
		}
	}
	return configs, nil
}

// ApplyValue resolves a single stage of the pipeline carried by value.
// The first stage runs only when its command is declared for phase;
// otherwise value is returned unchanged. The unconsumed stages are
// re-appended after the result, separated by " | ".
func ApplyValue(value string, phase Phase, reg *Registry) (string, error) {
	parts := escapes.SplitRaw(value, "|", 2)
	if len(parts) == 1 {
		return value, nil
	}

	fields := escapes.Fields(parts[1])
	if len(fields) == 0 {
		return "", errors.Newf(errors.ErrParse, "empty pipeline stage in %q", value)
	}
	inv := Invocation{Name: fields[0], Args: fields[1:]}

	cmd, err := reg.Get(inv.Name)
	if err != nil {
		return "", err
	}
	if cmd.Phase != phase {
		return value, nil
	}
	if !cmd.ReturnsValue {
		return "", errors.Newf(errors.ErrCommandExecute,
			"command %q does not return a value and cannot be applied to %q", cmd.Name, value).
			WithDetail("command", cmd.Name)
	}
	args, err := cmd.bindArgs(inv.Args)
	if err != nil {
		return "", err
	}

	res, err := cmd.Run(&Context{Value: parts[0], Args: args})
	if err != nil {
		return "", annotate(err, inv)
	}
	if len(parts) == 3 {
		return res.Value + " | " + parts[2], nil
	}
	return res.Value, nil
}

// annotate attaches the command and key to err, wrapping foreign errors as
// command execution failures.
func annotate(err error, inv Invocation) error {
	if errors.GetErrorCode(err) == errors.ErrUnknown {
		err = errors.Wrapf(err, errors.ErrCommandExecute, "command %q failed", inv.Name)
	}
	details := errors.GetErrorDetails(err)
	if details == nil {
		return err
	}
	if _, ok := details["command"]; !ok {
		details["command"] = inv.Name
	}
	if _, ok := details["key"]; !ok && inv.Key != "" {
		details["key"] = inv.Key
	}
	return err
}
