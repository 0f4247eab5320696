package world

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zurustar/procscript/pkg/logic"
)

//go:embed default.yaml
var defaultWorld []byte

// Defaults applied to zero-valued definition fields.
const (
	DefaultWidth      = 50
	DefaultHeight     = 50
	DefaultFloor      = "stone"
	DefaultTeam       = 1
	DefaultHealth     = 100
	DefaultUnitSpeed  = 0.5
	DefaultUnitRange  = 10
	DefaultUnitItems  = 30
	DefaultCellSize   = 64
	DefaultBankSize   = 512
	DefaultContainerN = 300
)

// NotFoundError reports a reference to something the world does not have.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Definition is the on-disk description of a world.
type Definition struct {
	Width     int           `yaml:"width" toml:"width"`
	Height    int           `yaml:"height" toml:"height"`
	Floor     string        `yaml:"floor" toml:"floor"`
	Processor ProcessorDef  `yaml:"processor" toml:"processor"`
	Buildings []BuildingDef `yaml:"buildings" toml:"buildings"`
	Units     []UnitDef     `yaml:"units" toml:"units"`
	Ores      []OreDef      `yaml:"ores" toml:"ores"`
	Spawns    []PointDef    `yaml:"spawns" toml:"spawns"`
}

// ProcessorDef places the processor that runs the script.
// Without Links every building of the processor's team is linked.
type ProcessorDef struct {
	Name  string   `yaml:"name" toml:"name"`
	X     float64  `yaml:"x" toml:"x"`
	Y     float64  `yaml:"y" toml:"y"`
	Team  int      `yaml:"team" toml:"team"`
	IPT   float64  `yaml:"ipt" toml:"ipt"`
	Links []string `yaml:"links" toml:"links"`
}

// BuildingDef places one building. Team 0 means the processor's team.
type BuildingDef struct {
	Name         string             `yaml:"name" toml:"name"`
	Block        string             `yaml:"block" toml:"block"`
	X            float64            `yaml:"x" toml:"x"`
	Y            float64            `yaml:"y" toml:"y"`
	Size         float64            `yaml:"size" toml:"size"`
	Team         int                `yaml:"team" toml:"team"`
	Health       float64            `yaml:"health" toml:"health"`
	MaxHealth    float64            `yaml:"maxHealth" toml:"maxHealth"`
	Range        float64            `yaml:"range" toml:"range"`
	Rotation     float64            `yaml:"rotation" toml:"rotation"`
	Disabled     bool               `yaml:"disabled" toml:"disabled"`
	Config       any                `yaml:"config" toml:"config"`
	Flags        []string           `yaml:"flags" toml:"flags"`
	Sensors      map[string]float64 `yaml:"sensors" toml:"sensors"`
	Items        map[string]int     `yaml:"items" toml:"items"`
	ItemCapacity int                `yaml:"itemCapacity" toml:"itemCapacity"`
	Memory       int                `yaml:"memory" toml:"memory"`
}

// UnitDef places one unit. Team 0 means the processor's team.
type UnitDef struct {
	Type         string  `yaml:"type" toml:"type"`
	X            float64 `yaml:"x" toml:"x"`
	Y            float64 `yaml:"y" toml:"y"`
	Team         int     `yaml:"team" toml:"team"`
	Flying       bool    `yaml:"flying" toml:"flying"`
	Boss         bool    `yaml:"boss" toml:"boss"`
	Attacker     bool    `yaml:"attacker" toml:"attacker"`
	Speed        float64 `yaml:"speed" toml:"speed"`
	Range        float64 `yaml:"range" toml:"range"`
	Health       float64 `yaml:"health" toml:"health"`
	MaxHealth    float64 `yaml:"maxHealth" toml:"maxHealth"`
	Shield       float64 `yaml:"shield" toml:"shield"`
	Armor        float64 `yaml:"armor" toml:"armor"`
	Flag         float64 `yaml:"flag" toml:"flag"`
	Item         string  `yaml:"item" toml:"item"`
	Stack        int     `yaml:"stack" toml:"stack"`
	ItemCapacity int     `yaml:"itemCapacity" toml:"itemCapacity"`
}

// OreDef marks one ore tile.
type OreDef struct {
	X    int    `yaml:"x" toml:"x"`
	Y    int    `yaml:"y" toml:"y"`
	Item string `yaml:"item" toml:"item"`
}

// PointDef is a spawn point.
type PointDef struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// Default returns the built-in demo world.
func Default() *Definition {
	def, err := Parse(defaultWorld, "yaml")
	if err != nil {
		panic(fmt.Sprintf("built-in world: %v", err))
	}
	return def
}

// LoadFile reads a world file. The format follows the extension: .yaml, .yml or .toml.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	def, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes a definition. Unknown keys are errors.
func Parse(data []byte, format string) (*Definition, error) {
	var def Definition
	switch format {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("invalid yaml world: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(data), &def)
		if err != nil {
			return nil, fmt.Errorf("invalid toml world: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("invalid toml world: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported world format %q", format)
	}
	return &def, nil
}

func (w *World) build(def *Definition) error {
	if def == nil {
		return errors.New("world definition is nil")
	}
	w.width = orInt(def.Width, DefaultWidth)
	w.height = orInt(def.Height, DefaultHeight)
	w.floor = logic.Content(orString(def.Floor, DefaultFloor))

	p := def.Processor
	team := orInt(p.Team, DefaultTeam)
	w.self = w.place(&Building{
		Name:      orString(p.Name, "processor1"),
		Type:      BlockProcessor,
		X:         p.X,
		Y:         p.Y,
		Size:      1,
		Team:      team,
		Health:    DefaultHealth,
		MaxHealth: DefaultHealth,
		Enabled:   true,
	})

	byName := map[string]*Building{w.self.Name: w.self}
	for i, bd := range def.Buildings {
		if bd.Name == "" {
			return fmt.Errorf("building %d has no name", i)
		}
		if _, dup := byName[bd.Name]; dup {
			return fmt.Errorf("duplicate building name %q", bd.Name)
		}
		b, err := newBuilding(bd, team)
		if err != nil {
			return fmt.Errorf("building %q: %w", bd.Name, err)
		}
		byName[bd.Name] = w.place(b)
	}

	links := p.Links
	if len(links) == 0 {
		for _, bd := range def.Buildings {
			if orInt(bd.Team, team) == team {
				links = append(links, bd.Name)
			}
		}
	}
	for _, name := range links {
		b, ok := byName[name]
		if !ok || b == w.self {
			return &NotFoundError{Kind: "link target", Name: name}
		}
		w.self.links = append(w.self.links, link{name: name, target: b})
	}

	for i, ud := range def.Units {
		if ud.Type == "" {
			return fmt.Errorf("unit %d has no type", i)
		}
		w.nextID++
		w.units = append(w.units, &Unit{
			ID:           w.nextID,
			Type:         logic.Content(ud.Type),
			X:            ud.X,
			Y:            ud.Y,
			Team:         orInt(ud.Team, team),
			Flying:       ud.Flying,
			Boss:         ud.Boss,
			Attacker:     ud.Attacker,
			Speed:        orFloat(ud.Speed, DefaultUnitSpeed),
			Range:        orFloat(ud.Range, DefaultUnitRange),
			Health:       orFloat(ud.Health, orFloat(ud.MaxHealth, DefaultHealth)),
			MaxHealth:    orFloat(ud.MaxHealth, DefaultHealth),
			Shield:       ud.Shield,
			Armor:        ud.Armor,
			Flag:         ud.Flag,
			Item:         logic.Content(ud.Item),
			Stack:        ud.Stack,
			ItemCapacity: orInt(ud.ItemCapacity, DefaultUnitItems),
		})
	}

	for i, od := range def.Ores {
		if od.Item == "" {
			return fmt.Errorf("ore %d has no item", i)
		}
		w.ores = append(w.ores, Ore{X: od.X, Y: od.Y, Item: logic.Content(od.Item)})
	}
	for _, sp := range def.Spawns {
		w.spawns = append(w.spawns, Point{X: sp.X, Y: sp.Y})
	}
	return nil
}

func newBuilding(bd BuildingDef, team int) (*Building, error) {
	if bd.Block == "" {
		return nil, errors.New("no block type")
	}
	block := logic.Content(bd.Block)
	b := &Building{
		Name:         bd.Name,
		Type:         block,
		X:            bd.X,
		Y:            bd.Y,
		Size:         orFloat(bd.Size, 1),
		Team:         orInt(bd.Team, team),
		MaxHealth:    orFloat(bd.MaxHealth, DefaultHealth),
		Range:        bd.Range,
		Rotation:     bd.Rotation,
		Enabled:      !bd.Disabled,
		Config:       bd.Config,
		Sensors:      bd.Sensors,
		ItemCapacity: bd.ItemCapacity,
		Items:        make(map[logic.Content]int),
	}
	b.Health = orFloat(bd.Health, b.MaxHealth)

	flags := bd.Flags
	if len(flags) == 0 {
		flags = defaultFlags(block)
	}
	for _, f := range flags {
		flag, ok := logic.Parse(logic.BlockFlags, f)
		if !ok {
			return nil, fmt.Errorf("unknown block flag %q", f)
		}
		b.Flags = append(b.Flags, flag)
	}
	for item, n := range bd.Items {
		b.Items[logic.Content(item)] = n
	}

	switch block {
	case BlockMemoryCell:
		b.Memory = make([]float64, orInt(bd.Memory, DefaultCellSize))
	case BlockMemoryBank:
		b.Memory = make([]float64, orInt(bd.Memory, DefaultBankSize))
	case BlockDisplay:
		b.Display = NewDisplay(DisplaySize)
	case BlockLargeDisp:
		b.Display = NewDisplay(LargeDisplaySize)
		b.Size = orFloat(bd.Size, 6)
	case BlockContainer:
		b.ItemCapacity = orInt(bd.ItemCapacity, DefaultContainerN)
	}
	return b, nil
}

func defaultFlags(block logic.Content) []string {
	switch {
	case strings.HasPrefix(string(block), "core-"):
		return []string{string(logic.FlagCore)}
	case block == BlockContainer || block == "vault":
		return []string{string(logic.FlagStorage)}
	case block == "duo" || block == "scatter" || block == "hail" || block == "lancer":
		return []string{string(logic.FlagTurret)}
	case block == "battery":
		return []string{string(logic.FlagBattery)}
	case strings.HasSuffix(string(block), "-drill"):
		return []string{string(logic.FlagDrill)}
	}
	return nil
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
