// Package constants defines shared constant values.
package constants

// AppName is the project identifier used in logs and metadata.
const AppName = "cm-toolkit"

// AppTitle is the human-readable application name.
const AppTitle = "Collective Modding Toolkit"

// CommandName is the primary CLI command name.
const CommandName = "cmt"

// Module and archive limits enforced by the game engine.
const (
	MaxModulesFull  = 254
	MaxModulesLight = 4096
	MaxArchivesGNRL = 255
)

// WarnThreshold is the fraction of a limit at which counts get flagged.
const WarnThreshold = 0.95

// NGStartupBA2CRC is the CRC32 (12-byte header skipped) of the Next-Gen
// "Fallout4 - Startup.ba2". Old-Gen binaries alongside this archive mean
// the install is a downgrade rather than a true Old-Gen install.
const NGStartupBA2CRC = "A5808F5F"

const (
	NexusModURL   = "https://www.nexusmods.com/fallout4/mods/87907"
	DiscordInvite = "https://discord.gg/pF9U5FmD6w"
	GithubRepo    = "wxMichael/Collective-Modding-Toolkit"
)

// AddressLibraryURL points users at the Address Library mod page.
const AddressLibraryURL = "https://www.nexusmods.com/fallout4/mods/47327"
