package bridge

import (
	"strings"

	"github.com/zurustar/procscript/pkg/console"
	"github.com/zurustar/procscript/pkg/sandbox"
)

// Console is the script-side console global. Its calls do not yield.
type Console struct {
	c *console.Console
}

func (*Console) String() string { return "console" }

func consoleMethods() map[string]sandbox.MethodFunc {
	line := func(write func(*console.Console, string)) sandbox.MethodFunc {
		return func(c *sandbox.Call) (any, error) {
			parts := make([]string, len(c.Args))
			for i, a := range c.Args {
				parts[i] = c.Runtime.ToString(a)
			}
			write(c.Recv.(*Console).c, strings.Join(parts, " "))
			return sandbox.Undefined, nil
		}
	}
	return map[string]sandbox.MethodFunc{
		"log":   line((*console.Console).Log),
		"warn":  line((*console.Console).Warn),
		"error": line((*console.Console).Error),
		"clear": func(c *sandbox.Call) (any, error) {
			c.Recv.(*Console).c.Clear()
			return sandbox.Undefined, nil
		},
	}
}
