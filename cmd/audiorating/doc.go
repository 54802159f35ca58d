// Command audiorating runs the ratings backend and offers tooling around it:
// configuration, studies files, stored ratings and participant progress.
package main
