// Package luamod hosts modules written in Lua. A script registers wire
// methods through the modkit API table; names carrying the event-handler
// prefix subscribe the script to events like any native module.
//
//	modkit.register("set_level", function(args)
//	  return args.level * 2
//	end)
//
//	modkit.register("on_door_open", function(args)
//	  modkit.trigger("porch_light", { on = true })
//	end)
//
// A Lua state is single-threaded; all entry points serialize on an
// internal mutex.
package luamod
