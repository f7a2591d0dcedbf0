// Package locator resolves server executables by name or path.
//
// A bare name is searched for on PATH and then in the usual install
// prefixes of package managers (Homebrew, MacPorts, /usr/local, distro
// sbin directories). A name containing a path separator is only checked
// for existence and the executable bit.
package locator
