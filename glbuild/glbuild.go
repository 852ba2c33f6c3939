// Package glbuild describes the GPU side of shadow data: typed buffer handles
// for upload and the std430 declarations a shader uses to read them.
package glbuild

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"unsafe"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 430\n"

// std430 element types with a Go memory layout matching their GLSL array stride.
var std430Types = map[reflect.Type]string{
	reflect.TypeOf(float32(0)):   "float",
	reflect.TypeOf(uint32(0)):    "uint",
	reflect.TypeOf(ms2.Vec{}):    "vec2",
	reflect.TypeOf([2]ms2.Vec{}): "vec4",
	reflect.TypeOf([4]uint32{}):  "uvec4",
}

// ShaderObject is a read-only Shader Storage Buffer Object (SSBO): a named 1D array
// of attribute data viewed in place. It aliases the memory of the slice it was made from.
type ShaderObject struct {
	// Name is the buffer's array name in the shader. It may be edited to resolve
	// naming conflicts before generating declarations.
	Name string
	// Element is the Go type of each array element.
	Element reflect.Type
	// Size of buffer in bytes.
	Size int
	// Binding is the buffer's binding point. It is -1 until allocated with [BindSequential].
	Binding int
	data    unsafe.Pointer
}

// NewAttribBuffer returns a buffer handle viewing data. data must not be empty and its
// element type must have a std430 equivalent.
func NewAttribBuffer[T any](name string, data []T) (ShaderObject, error) {
	if len(data) == 0 {
		return ShaderObject{}, fmt.Errorf("attribute buffer %q has no data", name)
	}
	elem := reflect.TypeOf((*T)(nil)).Elem()
	obj := ShaderObject{
		Name:    name,
		Element: elem,
		Size:    len(data) * int(elem.Size()),
		Binding: -1,
		data:    unsafe.Pointer(unsafe.SliceData(data)),
	}
	if err := obj.validate(); err != nil {
		return ShaderObject{}, err
	}
	return obj, nil
}

// Len returns the number of elements in the buffer.
func (obj ShaderObject) Len() int {
	if obj.Element == nil || obj.Element.Size() == 0 {
		return 0
	}
	return obj.Size / int(obj.Element.Size())
}

// Bytes returns the buffer's raw memory for upload. The result is only valid
// until the originating slice is modified or reallocated.
func (obj ShaderObject) Bytes() []byte {
	if obj.data == nil || obj.Size <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(obj.data), obj.Size)
}

// Typename returns the GLSL type of the buffer's elements.
func (obj ShaderObject) Typename() (string, error) {
	return typename(obj.Element)
}

func (obj ShaderObject) validate() error {
	if !validIdent(obj.Name) {
		return fmt.Errorf("invalid GLSL identifier %q", obj.Name)
	} else if obj.data == nil || obj.Size <= 0 {
		return fmt.Errorf("attribute buffer %q has no data", obj.Name)
	}
	_, err := obj.Typename()
	return err
}

func typename(tp reflect.Type) (string, error) {
	if tp == nil {
		return "", errors.New("nil element type")
	}
	if name, ok := std430Types[tp]; ok {
		return name, nil
	}
	if tp == reflect.TypeOf(ms3.Vec{}) {
		// std430 pads vec3 array elements to 16 bytes.
		return "", errors.New("vec3 element has mismatched std430 array stride")
	}
	return "", fmt.Errorf("no std430 equivalent for %s", tp)
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// BindSequential allocates consecutive binding points to objs starting at base.
func BindSequential(objs []ShaderObject, base int) error {
	if base < 0 {
		return errors.New("negative base binding")
	}
	for i := range objs {
		objs[i].Binding = base + i
	}
	return nil
}

// AppendBufferDecl appends the std430 declaration of obj in a block named B_<Name>:
//
//	layout(std430,binding=<Binding>) readonly buffer B_<Name> {
//		<type> <Name>[];
//	};
func AppendBufferDecl(dst []byte, obj ShaderObject) ([]byte, error) {
	if obj.Binding < 0 {
		return dst, fmt.Errorf("attribute buffer %q has no binding allocated", obj.Name)
	} else if err := obj.validate(); err != nil {
		return dst, err
	}
	tname, _ := obj.Typename()
	return fmt.Appendf(dst, "layout(std430,binding=%d) readonly buffer B_%s {\n\t%s %s[];\n};\n",
		obj.Binding, obj.Name, tname, obj.Name), nil
}

// AppendBufferDecls appends the declarations of all objs in order.
func AppendBufferDecls(dst []byte, objs []ShaderObject) ([]byte, error) {
	var err error
	for _, obj := range objs {
		dst, err = AppendBufferDecl(dst, obj)
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func appendConst(dst []byte, typ, name string, v ...float32) []byte {
	dst = append(dst, "const "...)
	dst = append(dst, typ...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, '=')
	if len(v) > 1 {
		dst = append(dst, typ...)
		dst = append(dst, '(')
		dst = AppendFloats(dst, ',', v...)
		dst = append(dst, ')')
	} else {
		dst = AppendFloat(dst, v[0])
	}
	return append(dst, ";\n"...)
}

func AppendFloatDecl(dst []byte, name string, v float32) []byte {
	return appendConst(dst, "float", name, v)
}

func AppendVec2Decl(dst []byte, name string, v ms2.Vec) []byte {
	return appendConst(dst, "vec2", name, v.X, v.Y)
}

func AppendVec3Decl(dst []byte, name string, v ms3.Vec) []byte {
	return appendConst(dst, "vec3", name, v.X, v.Y, v.Z)
}

func AppendIntDecl(dst []byte, name string, v int) []byte {
	dst = append(dst, "const int "...)
	dst = append(dst, name...)
	dst = append(dst, '=')
	dst = strconv.AppendInt(dst, int64(v), 10)
	return append(dst, ";\n"...)
}

// AppendFloat appends v as a GLSL float literal, always with a decimal point.
func AppendFloat(dst []byte, v float32) []byte {
	start := len(dst)
	dst = strconv.AppendFloat(dst, float64(v), 'f', -1, 32)
	for _, c := range dst[start:] {
		if c == '.' {
			return dst
		}
	}
	return append(dst, ".0"...)
}

// AppendFloats appends the float literals of v separated by sep.
func AppendFloats(dst []byte, sep byte, v ...float32) []byte {
	for i := range v {
		if i > 0 {
			dst = append(dst, sep)
		}
		dst = AppendFloat(dst, v[i])
	}
	return dst
}
