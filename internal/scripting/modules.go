package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/battleforge/internal/game/bestiary"
	"github.com/cory-johannsen/battleforge/internal/game/dice"
)

// registerModules installs the battle.* table into L. Every call records
// into sc.
//
//	battle.spawn(name, team [, hp])               -> total spawns so far
//	battle.spawn{name=, team=, hp=, count=}       -> total spawns so far
//	battle.max_rounds(n)
//	battle.name(s)
//	battle.roll(expr)                             -> rolled total
//	battle.log.debug|info|warn|error(msg)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: battle global is defined in L.
func (l *Loader) registerModules(L *lua.LState, sc *Scenario, roller *dice.Roller) {
	battle := L.NewTable()

	L.SetField(battle, "spawn", L.NewFunction(func(L *lua.LState) int {
		var (
			sp    bestiary.Spawn
			count = 1
		)
		if tbl, ok := L.Get(1).(*lua.LTable); ok {
			sp.Name = fieldString(L, tbl, "name")
			sp.Team = fieldInt(L, tbl, "team", 0)
			sp.HP = fieldInt(L, tbl, "hp", 0)
			count = fieldInt(L, tbl, "count", 1)
		} else {
			sp.Name = L.CheckString(1)
			sp.Team = L.CheckInt(2)
			sp.HP = L.OptInt(3, 0)
		}
		switch {
		case sp.Name == "":
			L.ArgError(1, "monster name must not be empty")
		case sp.Team < 0:
			L.ArgError(1, "team must be >= 0")
		case sp.HP < 0:
			L.ArgError(1, "hp must be >= 0")
		case count < 1:
			L.ArgError(1, "count must be >= 1")
		case l.Known != nil && !l.Known(sp.Name):
			L.RaiseError("unknown monster %q", sp.Name)
		}
		for i := 0; i < count; i++ {
			sc.Spawns = append(sc.Spawns, sp)
		}
		L.Push(lua.LNumber(len(sc.Spawns)))
		return 1
	}))

	L.SetField(battle, "max_rounds", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 0 {
			L.ArgError(1, "max_rounds must be >= 0")
		}
		sc.MaxRounds = n
		return 0
	}))

	L.SetField(battle, "name", L.NewFunction(func(L *lua.LState) int {
		sc.Name = L.CheckString(1)
		return 0
	}))

	L.SetField(battle, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := roller.RollExpr(L.CheckString(1))
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		L.Push(lua.LNumber(res.Total()))
		return 1
	}))

	logTbl := L.NewTable()
	for level, fn := range map[string]func(string, ...zap.Field){
		"debug": l.logger.Debug,
		"info":  l.logger.Info,
		"warn":  l.logger.Warn,
		"error": l.logger.Error,
	} {
		fn := fn
		L.SetField(logTbl, level, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("scenario", sc.Name))
			return 0
		}))
	}
	L.SetField(battle, "log", logTbl)

	L.SetGlobal("battle", battle)
}

func fieldString(L *lua.LState, tbl *lua.LTable, key string) string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return ""
	default:
		L.ArgError(1, key+" must be a string")
		return ""
	}
}

func fieldInt(L *lua.LState, tbl *lua.LTable, key string, def int) int {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LNumber:
		return int(v)
	case *lua.LNilType:
		return def
	default:
		L.ArgError(1, key+" must be a number")
		return def
	}
}
