// Package commands implements the pkmsg command line interface.
//
// The CLI is a thin wrapper over the pkmsg client facade: it keeps a
// wrapped session blob on disk, restores it before each command, and
// talks to a homeserver over HTTP. Configuration comes from flags, the
// environment, or a .env file in the working directory.
package commands
