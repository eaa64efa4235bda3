package terminal

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/erdide/nodedebug/pkg/config"
)

func configureCmd(t *Term, ctx context.Context, args string) error {
	switch args {
	case "-list":
		return configureList(t)
	case "-save":
		return config.SaveConfigFile(t.conf.Path(), t.conf.Config())
	case "":
		return fmt.Errorf("wrong number of arguments to \"config\"")
	default:
		return configureSet(t, args)
	}
}

type configureIterator struct {
	cfgValue reflect.Value
	cfgType  reflect.Type
	i        int
}

func iterateConfiguration(conf *config.Config) *configureIterator {
	cfgValue := reflect.ValueOf(conf).Elem()
	cfgType := cfgValue.Type()

	return &configureIterator{cfgValue, cfgType, -1}
}

func (it *configureIterator) Next() bool {
	it.i++
	return it.i < it.cfgValue.NumField()
}

func (it *configureIterator) Field() (name string, field reflect.Value) {
	name = it.cfgType.Field(it.i).Tag.Get("yaml")
	if comma := strings.Index(name, ","); comma >= 0 {
		name = name[:comma]
	}
	field = it.cfgValue.Field(it.i)
	return
}

func configureFindFieldByName(conf *config.Config, name string) reflect.Value {
	it := iterateConfiguration(conf)
	for it.Next() {
		fieldName, field := it.Field()
		if fieldName == name {
			return field
		}
	}
	return reflect.ValueOf(nil)
}

func configureList(t *Term) error {
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 1, ' ', 0)

	it := iterateConfiguration(t.conf.Config())
	for it.Next() {
		fieldName, field := it.Field()
		if fieldName == "" || fieldName == "aliases" {
			continue
		}
		fmt.Fprintf(w, "%s\t%v\n", fieldName, field)
	}
	return w.Flush()
}

func configureSet(t *Term, args string) error {
	v := split2PartsBySpace(args)

	cfgname := v[0]
	var rest string
	if len(v) == 2 {
		rest = v[1]
	}

	if cfgname == "alias" {
		return configureSetAlias(t, rest)
	}

	var err error
	t.conf.Update(func(conf *config.Config) {
		field := configureFindFieldByName(conf, cfgname)
		if !field.CanAddr() || cfgname == "aliases" {
			err = fmt.Errorf("%q is not a configuration parameter", cfgname)
			return
		}

		switch field.Kind() {
		case reflect.Int:
			n, perr := strconv.Atoi(rest)
			if perr != nil {
				err = fmt.Errorf("argument to %q must be a number", cfgname)
				return
			}
			if n <= 0 {
				err = fmt.Errorf("argument to %q must be a number greater than zero", cfgname)
				return
			}
			field.SetInt(int64(n))
		case reflect.Bool:
			field.SetBool(rest == "true")
		case reflect.String:
			old := field.String()
			field.SetString(strings.Trim(rest, `"`))
			if verr := conf.Validate(); verr != nil {
				field.SetString(old)
				err = verr
			}
		default:
			err = fmt.Errorf("unsupported type for configuration key %q", cfgname)
		}
	})
	return err
}

func configureSetAlias(t *Term, rest string) error {
	argv, err := config.SplitArgs(rest)
	if err != nil {
		return err
	}
	t.conf.Update(func(conf *config.Config) {
		switch len(argv) {
		case 1: // delete alias rule
			for k := range conf.Aliases {
				v := conf.Aliases[k]
				for i := range v {
					if v[i] == argv[0] {
						copy(v[i:], v[i+1:])
						conf.Aliases[k] = v[:len(v)-1]
						break
					}
				}
			}
		case 2: // add alias rule
			alias, cmd := argv[1], argv[0]
			if conf.Aliases == nil {
				conf.Aliases = make(map[string][]string)
			}
			conf.Aliases[cmd] = append(conf.Aliases[cmd], alias)
		default:
			err = fmt.Errorf("wrong number of arguments to \"config alias\"")
		}
	})
	if err != nil {
		return err
	}
	t.cmds.Merge(t.conf.Config().Aliases)
	return nil
}

func split2PartsBySpace(s string) []string {
	v := strings.SplitN(s, " ", 2)
	for i := range v {
		v[i] = strings.TrimSpace(v[i])
	}
	return v
}
