package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

type OpKind int

const (
	OpConstruct OpKind = iota
	OpCall
	OpGet
)

// Op is one step of a pipeline trial.
type Op struct {
	Kind OpKind
	Name string
	Path []string
	Args Args
}

// Construct creates a fresh instance by calling the implementation.
func Construct(args ...any) Op {
	return Op{Kind: OpConstruct, Args: Positional(args...)}
}

// Call invokes a method on the running instance.
func Call(method string, args ...any) Op {
	return Op{Kind: OpCall, Name: method, Args: Positional(args...)}
}

// Get reads a field, map key or zero-argument method chain.
func Get(path ...string) Op {
	return Op{Kind: OpGet, Path: path}
}

func (o Op) String() string {
	switch o.Kind {
	case OpConstruct:
		return "new(" + o.Args.String() + ")"
	case OpCall:
		return o.Name + "(" + o.Args.String() + ")"
	default:
		return "." + strings.Join(o.Path, ".")
	}
}

var (
	errNoInstance = errors.New("no instance has been constructed")
	consoleType   = reflect.TypeOf((*Console)(nil))
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// runPipeline evaluates ops in order against one shared instance and
// returns one value per op; construction records nil.
func runPipeline(con *Console, ops []Op, ctor Func) ([]any, error) {
	results := make([]any, 0, len(ops))
	var instance any
	for i, op := range ops {
		var (
			v   any
			err error
		)
		switch op.Kind {
		case OpConstruct:
			instance, err = ctor(con, op.Args.Clone())
		case OpCall:
			v, err = callMethod(con, instance, op.Name, op.Args.Clone())
		case OpGet:
			v, err = getPath(instance, op.Path)
		default:
			err = fmt.Errorf("unknown operation kind %d", op.Kind)
		}
		if err != nil {
			return results, fmt.Errorf("step %d %s: %w", i+1, op, err)
		}
		results = append(results, v)
	}
	return results, nil
}

func callMethod(con *Console, instance any, name string, in Args) (any, error) {
	if instance == nil {
		return nil, errNoInstance
	}
	if len(in.Kw) > 0 {
		return nil, fmt.Errorf("named arguments are not supported for method %s", name)
	}
	m := reflect.ValueOf(instance).MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("%T has no method %s", instance, name)
	}
	mt := m.Type()

	var args []reflect.Value
	if mt.NumIn() > 0 && mt.In(0) == consoleType {
		args = append(args, reflect.ValueOf(con))
	}
	for _, a := range in.Pos {
		idx := len(args)
		var pt reflect.Type
		switch {
		case mt.IsVariadic() && idx >= mt.NumIn()-1:
			pt = mt.In(mt.NumIn() - 1).Elem()
		case idx < mt.NumIn():
			pt = mt.In(idx)
		default:
			return nil, fmt.Errorf("%s takes %d arguments, got %d", name, mt.NumIn(), len(in.Pos))
		}
		av, err := argValue(a, pt)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", name, idx+1, err)
		}
		args = append(args, av)
	}
	want := mt.NumIn()
	if mt.IsVariadic() {
		want--
	}
	if len(args) < want {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", name, want, len(args))
	}
	return unpack(m.Call(args))
}

func argValue(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumericKind(v.Kind()) && isNumericKind(t.Kind()) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("got %T, want %s", a, t)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// unpack turns method results into a value and an error. A trailing error
// result is treated as the call's error.
func unpack(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, nil
}

func getPath(instance any, path []string) (any, error) {
	if instance == nil {
		return nil, errNoInstance
	}
	v := reflect.ValueOf(instance)
	for _, name := range path {
		if !v.IsValid() {
			return nil, fmt.Errorf("cannot read %s of nil", name)
		}
		if m := v.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 {
			res, err := unpack(m.Call(nil))
			if err != nil {
				return nil, err
			}
			v = reflect.ValueOf(res)
			continue
		}
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, fmt.Errorf("cannot read %s of nil", name)
			}
			v = v.Elem()
		}
		switch v.Kind() {
		case reflect.Struct:
			f := v.FieldByName(name)
			if !f.IsValid() || !f.CanInterface() {
				return nil, fmt.Errorf("%s has no field %s", v.Type(), name)
			}
			v = f
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil, fmt.Errorf("%s is not keyed by strings", v.Type())
			}
			e := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
			if !e.IsValid() {
				return nil, fmt.Errorf("no key %q", name)
			}
			v = e
		default:
			return nil, fmt.Errorf("cannot read %s of %s", name, v.Type())
		}
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}
