// Package kv is an ordered key/value record, the decoded form of compiled resource blocks.
// Typed accessors never coerce between unrelated kinds: asking for a string where
// an array is stored returns ErrTypeMismatch.
package kv

import (
	"encoding/base64"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var (
	ErrMissingKey   = errors.New("missing key")
	ErrTypeMismatch = errors.New("type mismatch")
)

type Record struct {
	keys   []string
	values map[string]interface{}
}

func New() *Record {
	return &Record{values: make(map[string]interface{})}
}

// Set appends key or replaces its value keeping the original position.
func (r *Record) Set(key string, v interface{}) *Record {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
	return r
}

func (r *Record) Keys() []string {
	return r.keys
}

func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) Has(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.values[key]
	return ok
}

func (r *Record) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

func (r *Record) get(key string) (interface{}, error) {
	v, ok := r.Get(key)
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "%q", key)
	}
	return v, nil
}

func mismatch(key string, want string, v interface{}) error {
	return errors.Wrapf(ErrTypeMismatch, "%q is %T, expected %s", key, v, want)
}

func (r *Record) String(key string) (string, error) {
	v, err := r.get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(key, "string", v)
	}
	return s, nil
}

func (r *Record) Bool(key string) (bool, error) {
	v, err := r.get(key)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	}
	return false, mismatch(key, "bool", v)
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func toFloat(v interface{}) (float32, bool) {
	switch f := v.(type) {
	case float32:
		return f, true
	case float64:
		return float32(f), true
	}
	if n, ok := toInt(v); ok {
		return float32(n), true
	}
	return 0, false
}

func (r *Record) Int(key string) (int64, error) {
	v, err := r.get(key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok {
		return 0, mismatch(key, "integer", v)
	}
	return n, nil
}

func (r *Record) Float(key string) (float32, error) {
	v, err := r.get(key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, mismatch(key, "number", v)
	}
	return f, nil
}

func (r *Record) Record(key string) (*Record, error) {
	v, err := r.get(key)
	if err != nil {
		return nil, err
	}
	sub, ok := v.(*Record)
	if !ok {
		return nil, mismatch(key, "record", v)
	}
	return sub, nil
}

func (r *Record) Array(key string) ([]interface{}, error) {
	v, err := r.get(key)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, mismatch(key, "array", v)
	}
	return arr, nil
}

func (r *Record) Records(key string) ([]*Record, error) {
	arr, err := r.Array(key)
	if err != nil {
		return nil, err
	}
	result := make([]*Record, len(arr))
	for i, v := range arr {
		sub, ok := v.(*Record)
		if !ok {
			return nil, mismatch(fmt.Sprintf("%s[%d]", key, i), "record", v)
		}
		result[i] = sub
	}
	return result, nil
}

func (r *Record) Strings(key string) ([]string, error) {
	arr, err := r.Array(key)
	if err != nil {
		return nil, err
	}
	result := make([]string, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(fmt.Sprintf("%s[%d]", key, i), "string", v)
		}
		result[i] = s
	}
	return result, nil
}

func (r *Record) Ints(key string) ([]int64, error) {
	arr, err := r.Array(key)
	if err != nil {
		return nil, err
	}
	result := make([]int64, len(arr))
	for i, v := range arr {
		n, ok := toInt(v)
		if !ok {
			return nil, mismatch(fmt.Sprintf("%s[%d]", key, i), "integer", v)
		}
		result[i] = n
	}
	return result, nil
}

func (r *Record) Floats(key string) ([]float32, error) {
	arr, err := r.Array(key)
	if err != nil {
		return nil, err
	}
	result := make([]float32, len(arr))
	for i, v := range arr {
		f, ok := toFloat(v)
		if !ok {
			return nil, mismatch(fmt.Sprintf("%s[%d]", key, i), "number", v)
		}
		result[i] = f
	}
	return result, nil
}

// Bytes accepts raw bytes or a base64 string.
func (r *Record) Bytes(key string) ([]byte, error) {
	v, err := r.get(key)
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		data, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to decode %q", key)
		}
		return data, nil
	}
	return nil, mismatch(key, "bytes", v)
}

func (r *Record) floatsN(key string, n int) ([]float32, error) {
	f, err := r.Floats(key)
	if err != nil {
		return nil, err
	}
	if len(f) != n {
		return nil, errors.Wrapf(ErrTypeMismatch, "%q has %d components, expected %d", key, len(f), n)
	}
	return f, nil
}

func (r *Record) Vec3(key string) (mgl32.Vec3, error) {
	f, err := r.floatsN(key, 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{f[0], f[1], f[2]}, nil
}

func (r *Record) Vec4(key string) (mgl32.Vec4, error) {
	f, err := r.floatsN(key, 4)
	if err != nil {
		return mgl32.Vec4{}, err
	}
	return mgl32.Vec4{f[0], f[1], f[2], f[3]}, nil
}

// Quat reads an x, y, z, w quaternion.
func (r *Record) Quat(key string) (mgl32.Quat, error) {
	v, err := r.Vec4(key)
	if err != nil {
		return mgl32.QuatIdent(), err
	}
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}, nil
}

// Mat4 reads 16 floats, or 12 floats of a row-major 3x4 transform.
func (r *Record) Mat4(key string) (mgl32.Mat4, error) {
	f, err := r.Floats(key)
	if err != nil {
		return mgl32.Ident4(), err
	}
	switch len(f) {
	case 16:
		var m mgl32.Mat4
		copy(m[:], f)
		return m, nil
	case 12:
		m := mgl32.Ident4()
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				m.Set(row, col, f[row*4+col])
			}
		}
		return m, nil
	}
	return mgl32.Ident4(), errors.Wrapf(ErrTypeMismatch, "%q has %d components, expected 12 or 16", key, len(f))
}

func (r *Record) StringOr(key string, def string) string {
	if s, err := r.String(key); err == nil {
		return s
	}
	return def
}

func (r *Record) IntOr(key string, def int64) int64 {
	if n, err := r.Int(key); err == nil {
		return n
	}
	return def
}

func (r *Record) FloatOr(key string, def float32) float32 {
	if f, err := r.Float(key); err == nil {
		return f
	}
	return def
}

func (r *Record) BoolOr(key string, def bool) bool {
	if b, err := r.Bool(key); err == nil {
		return b
	}
	return def
}
