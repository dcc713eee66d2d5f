package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/vmod-types/scan"
	"github.com/wippyai/vmod-types/types"
	"github.com/wippyai/vmod-types/vmod"
)

type printer struct {
	w      io.Writer
	styled bool
	wit    bool
	dump   bool
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) results(results []scan.Result, namesOnly bool) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(p.w, "%s %s\n", r.Name, p.style(errorStyle, r.Err.Error()))
			continue
		}
		if namesOnly {
			fmt.Fprintln(p.w, r.Name)
			continue
		}
		p.module(r.Module)
	}
}

func (p *printer) module(m *vmod.Module) {
	fmt.Fprintf(p.w, "%s abi %s\n", p.style(titleStyle, "vmod "+m.Name), m.Descriptor.ABIVersion())

	if p.dump {
		repr.New(p.w, repr.Indent("  "), repr.OmitEmpty(true)).Println(m.Namespace)
		return
	}

	for _, name := range m.Namespace.Names() {
		v, _ := m.Namespace.Get(name)
		fn, ok := v.(*types.Func)
		if !ok {
			fmt.Fprintf(p.w, "  %s: %s\n", name, p.style(typeStyle, v.String()))
			continue
		}
		fmt.Fprintf(p.w, "  %s\n", p.formatFunc(fn))

		if obj := fn.Constructor(); obj != nil {
			for _, method := range obj.Funcs() {
				fmt.Fprintf(p.w, "    .%s\n", p.formatFunc(method))
			}
		}
	}
	fmt.Fprintln(p.w)
}

func (p *printer) formatFunc(f *types.Func) string {
	if p.wit {
		return p.style(funcStyle, f.Name) + ": " + p.style(typeStyle, types.WITSignature(f))
	}

	params := make([]string, 0, len(f.Params))
	for _, param := range f.Params {
		params = append(params, p.style(typeStyle, param.Type)+" "+param.Name)
	}
	s := p.style(funcStyle, f.Name) + "(" + strings.Join(params, ", ") + ")"
	if f.Return != nil {
		ret := f.Return.String()
		if obj, ok := f.Return.(*types.Object); ok {
			ret = obj.Name
		}
		s += " -> " + p.style(typeStyle, ret)
	}
	return s
}
