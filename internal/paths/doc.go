// Provides platform-appropriate paths for the daemon.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The daemon name "kilnd" is used as the subdirectory
// under each base path. The stage cache lives under the user cache directory
// because its entries are reproducible from their inputs and safe to discard.
package paths
