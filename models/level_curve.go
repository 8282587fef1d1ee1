package models

import "math"

// LevelXPBase and LevelXPMultiplier shape the level curve:
// XP to complete a level = floor(LevelXPBase * level * LevelXPMultiplier).
const (
	LevelXPBase       = 100
	LevelXPMultiplier = 1.5
)

// XPForLevel returns the XP threshold associated with level.
// The threshold charged while sitting on level L is XPForLevel(L+1), so a
// fresh level-1 record needs XPForLevel(2) = 300 XP to reach level 2.
func XPForLevel(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(float64(LevelXPBase) * float64(level) * LevelXPMultiplier))
}

// LevelFromXP is the diagnostic inverse of the curve: the largest level L such that
// XPForLevel(2) + ... + XPForLevel(L) <= totalXP.
//
// The authoritative level lives on UserProgress and is advanced incrementally by AddXP;
// this is only used for consistency checks.
func LevelFromXP(totalXP int64) int {
	level := 1
	remaining := totalXP
	for {
		need := XPForLevel(level + 1)
		if need <= 0 || remaining < need {
			return level
		}
		remaining -= need
		level++
	}
}
