// Package module defines the contract between application modules and the
// dispatch core: the Module interface and its optional lifecycle
// capabilities, the canonical callable signature, call arguments and
// metadata, priorities, and the dotted addressing scheme.
//
// A module is any named unit; everything beyond Name is optional and
// discovered structurally at registration. Exported Go methods with the
// canonical Func signature become callable under snake_case wire names
// ("Toggle" is addressed as "light.toggle", "OnDoorOpen" handles the
// "door_open" event).
package module
