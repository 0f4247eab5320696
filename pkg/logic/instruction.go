package logic

// Instruction is one typed processor instruction.
type Instruction interface {
	// Op returns the instruction mnemonic, used in logs.
	Op() string
}

// Entity is a simulation object a register can hold.
type Entity interface {
	// EntityID is stable for the life of the entity; handles compare by it.
	EntityID() int
}

// Building is a placed block.
type Building interface {
	Entity
	Block() Content
}

// Unit is a mobile entity.
type Unit interface {
	Entity
	UnitType() Content
}

// Link is a named connection from a processor to a building.
type Link struct {
	Name string
	// Target is nil when the linked building no longer exists.
	Target Building
}

// Processor is the building a script runs on. @this holds it.
type Processor interface {
	Building
	Links() []Link
}

// Sense reads Sensor (an LAccess or a Content) of Target into Result.
type Sense struct {
	Target, Result, Sensor *Var
}

// Control sets Type on Target from P1..P4.
type Control struct {
	Type           LAccess
	Target         *Var
	P1, P2, P3, P4 *Var
}

// Read loads memory cell Target at Address into Result.
type Read struct {
	Target, Address, Result *Var
}

// Write stores Value into memory cell Target at Address.
type Write struct {
	Target, Address, Value *Var
}

// Radar finds the Order-th entity around Source matching all three targets.
// Order 1 picks the first by Sort, 0 the last. Result is null when nothing matches.
type Radar struct {
	T1, T2, T3    RadarTarget
	Sort          RadarSort
	Source, Order *Var
	Result        *Var
}

// UnitBind binds @unit to the next unit of the type in Type, or to the unit object itself.
type UnitBind struct {
	Type *Var
}

// UnitControl makes the bound unit perform Type. Outputs are written back into P3..P5.
type UnitControl struct {
	Type               UnitControlType
	P1, P2, P3, P4, P5 *Var
}

// UnitLocate searches around the bound unit. OutX, OutY and Building receive the
// match and Found is set to whether there was one.
type UnitLocate struct {
	Type            LocateType
	Flag            BlockFlag
	Enemy, Ore      *Var
	OutX, OutY      *Var
	Found, Building *Var
}

// Draw queues one graphics command in the processor's draw buffer.
// Text is used by DrawPrint and Align anchors it.
type Draw struct {
	Type                   GraphicsType
	P1, P2, P3, P4, P5, P6 *Var
	Text                   string
	Align                  Align
}

// Print appends Value to the processor's text buffer.
type Print struct {
	Value *Var
}

// PrintFlush moves the text buffer into the message block Target.
type PrintFlush struct {
	Target *Var
}

// DrawFlush moves the draw buffer into the display Target.
type DrawFlush struct {
	Target *Var
}

func (*Sense) Op() string       { return "sensor" }
func (*Control) Op() string     { return "control" }
func (*Read) Op() string        { return "read" }
func (*Write) Op() string       { return "write" }
func (*Radar) Op() string       { return "radar" }
func (*UnitBind) Op() string    { return "ubind" }
func (*UnitControl) Op() string { return "ucontrol" }
func (*UnitLocate) Op() string  { return "ulocate" }
func (*Draw) Op() string        { return "draw" }
func (*Print) Op() string       { return "print" }
func (*PrintFlush) Op() string  { return "printflush" }
func (*DrawFlush) Op() string   { return "drawflush" }

// Executor applies instructions against the register set of one processor.
type Executor interface {
	// Var returns the register with the given name, creating it if needed.
	// Names starting with @ are built-in registers or content constants.
	Var(name string) *Var
	// Run executes exactly one instruction.
	Run(inst Instruction) error
}
