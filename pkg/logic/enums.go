package logic

import "slices"

// Content names a unit type, item, liquid or block, for example "flare" or "copper".
type Content string

func (c Content) String() string { return string(c) }

// LAccess names a sensor or a control target.
type LAccess string

const (
	AccessTotalItems     LAccess = "totalItems"
	AccessFirstItem      LAccess = "firstItem"
	AccessTotalLiquids   LAccess = "totalLiquids"
	AccessTotalPower     LAccess = "totalPower"
	AccessItemCapacity   LAccess = "itemCapacity"
	AccessPowerCapacity  LAccess = "powerCapacity"
	AccessHealth         LAccess = "health"
	AccessMaxHealth      LAccess = "maxHealth"
	AccessHeat           LAccess = "heat"
	AccessEfficiency     LAccess = "efficiency"
	AccessRotation       LAccess = "rotation"
	AccessX              LAccess = "x"
	AccessY              LAccess = "y"
	AccessShootX         LAccess = "shootX"
	AccessShootY         LAccess = "shootY"
	AccessSize           LAccess = "size"
	AccessDead           LAccess = "dead"
	AccessRange          LAccess = "range"
	AccessShooting       LAccess = "shooting"
	AccessBoosting       LAccess = "boosting"
	AccessMineX          LAccess = "mineX"
	AccessMineY          LAccess = "mineY"
	AccessMining         LAccess = "mining"
	AccessSpeed          LAccess = "speed"
	AccessTeam           LAccess = "team"
	AccessType           LAccess = "type"
	AccessFlag           LAccess = "flag"
	AccessControlled     LAccess = "controlled"
	AccessName           LAccess = "name"
	AccessPayloadCount   LAccess = "payloadCount"
	AccessEnabled        LAccess = "enabled"
	AccessConfig         LAccess = "config"
	AccessColor          LAccess = "color"
	AccessShoot          LAccess = "shoot"
	AccessShootP         LAccess = "shootp"
	AccessMemoryCapacity LAccess = "memoryCapacity"
)

// Senseable lists every LAccess a sense instruction accepts.
var Senseable = []LAccess{
	AccessTotalItems, AccessFirstItem, AccessTotalLiquids, AccessTotalPower, AccessItemCapacity,
	AccessPowerCapacity, AccessHealth, AccessMaxHealth, AccessHeat, AccessEfficiency, AccessRotation,
	AccessX, AccessY, AccessShootX, AccessShootY, AccessSize, AccessDead, AccessRange, AccessShooting,
	AccessBoosting, AccessMineX, AccessMineY, AccessMining, AccessSpeed, AccessTeam, AccessType,
	AccessFlag, AccessControlled, AccessName, AccessPayloadCount, AccessEnabled, AccessConfig,
	AccessColor, AccessMemoryCapacity,
}

// Controllable lists every LAccess a control instruction accepts.
var Controllable = []LAccess{AccessEnabled, AccessShoot, AccessShootP, AccessConfig, AccessColor}

// RadarTarget filters radar results.
type RadarTarget string

const (
	TargetAny      RadarTarget = "any"
	TargetEnemy    RadarTarget = "enemy"
	TargetAlly     RadarTarget = "ally"
	TargetPlayer   RadarTarget = "player"
	TargetAttacker RadarTarget = "attacker"
	TargetFlying   RadarTarget = "flying"
	TargetBoss     RadarTarget = "boss"
	TargetGround   RadarTarget = "ground"
)

// RadarTargets lists every RadarTarget in declaration order.
var RadarTargets = []RadarTarget{
	TargetAny, TargetEnemy, TargetAlly, TargetPlayer, TargetAttacker, TargetFlying, TargetBoss, TargetGround,
}

// RadarSort orders radar results.
type RadarSort string

const (
	SortDistance  RadarSort = "distance"
	SortHealth    RadarSort = "health"
	SortShield    RadarSort = "shield"
	SortArmor     RadarSort = "armor"
	SortMaxHealth RadarSort = "maxHealth"
)

// RadarSorts lists every RadarSort in declaration order.
var RadarSorts = []RadarSort{SortDistance, SortHealth, SortShield, SortArmor, SortMaxHealth}

// BlockFlag groups buildings for locate.
type BlockFlag string

const (
	FlagCore          BlockFlag = "core"
	FlagStorage       BlockFlag = "storage"
	FlagGenerator     BlockFlag = "generator"
	FlagTurret        BlockFlag = "turret"
	FlagFactory       BlockFlag = "factory"
	FlagRepair        BlockFlag = "repair"
	FlagBattery       BlockFlag = "battery"
	FlagReactor       BlockFlag = "reactor"
	FlagExtinguisher  BlockFlag = "extinguisher"
	FlagDrill         BlockFlag = "drill"
	FlagShield        BlockFlag = "shield"
	FlagUnitAssembler BlockFlag = "unitAssembler"
)

// BlockFlags lists every BlockFlag in declaration order.
var BlockFlags = []BlockFlag{
	FlagCore, FlagStorage, FlagGenerator, FlagTurret, FlagFactory, FlagRepair,
	FlagBattery, FlagReactor, FlagExtinguisher, FlagDrill, FlagShield, FlagUnitAssembler,
}

// UnitControlType selects the action of a unit-control instruction.
type UnitControlType string

const (
	UnitIdle         UnitControlType = "idle"
	UnitStop         UnitControlType = "stop"
	UnitMove         UnitControlType = "move"
	UnitApproach     UnitControlType = "approach"
	UnitPathfind     UnitControlType = "pathfind"
	UnitAutoPathfind UnitControlType = "autoPathfind"
	UnitBoost        UnitControlType = "boost"
	UnitTarget       UnitControlType = "target"
	UnitTargetP      UnitControlType = "targetp"
	UnitItemDrop     UnitControlType = "itemDrop"
	UnitItemTake     UnitControlType = "itemTake"
	UnitPayDrop      UnitControlType = "payDrop"
	UnitPayTake      UnitControlType = "payTake"
	UnitPayEnter     UnitControlType = "payEnter"
	UnitMine         UnitControlType = "mine"
	UnitFlag         UnitControlType = "flag"
	UnitBuild        UnitControlType = "build"
	UnitGetBlock     UnitControlType = "getBlock"
	UnitWithin       UnitControlType = "within"
	UnitUnbind       UnitControlType = "unbind"
)

// LocateType selects what a unit-locate instruction searches for.
type LocateType string

const (
	LocateBuilding LocateType = "building"
	LocateOre      LocateType = "ore"
	LocateSpawn    LocateType = "spawn"
	LocateDamaged  LocateType = "damaged"
)

// GraphicsType selects a draw operation.
type GraphicsType string

const (
	DrawClear     GraphicsType = "clear"
	DrawColor     GraphicsType = "color"
	DrawStroke    GraphicsType = "stroke"
	DrawLine      GraphicsType = "line"
	DrawRect      GraphicsType = "rect"
	DrawLineRect  GraphicsType = "lineRect"
	DrawPoly      GraphicsType = "poly"
	DrawLinePoly  GraphicsType = "linePoly"
	DrawTriangle  GraphicsType = "triangle"
	DrawImage     GraphicsType = "image"
	DrawPrint     GraphicsType = "print"
	DrawTranslate GraphicsType = "translate"
	DrawScale     GraphicsType = "scale"
	DrawRotate    GraphicsType = "rotate"
	DrawReset     GraphicsType = "reset"
)

// Align anchors text drawn by DrawPrint.
type Align string

const (
	AlignCenter      Align = "center"
	AlignTop         Align = "top"
	AlignBottom      Align = "bottom"
	AlignLeft        Align = "left"
	AlignRight       Align = "right"
	AlignTopLeft     Align = "topLeft"
	AlignTopRight    Align = "topRight"
	AlignBottomLeft  Align = "bottomLeft"
	AlignBottomRight Align = "bottomRight"
)

// Aligns lists every Align in declaration order.
var Aligns = []Align{
	AlignCenter, AlignTop, AlignBottom, AlignLeft, AlignRight,
	AlignTopLeft, AlignTopRight, AlignBottomLeft, AlignBottomRight,
}

// Parse looks name up in values.
func Parse[T ~string](values []T, name string) (T, bool) {
	if i := slices.Index(values, T(name)); i >= 0 {
		return values[i], true
	}
	var zero T
	return zero, false
}
