// Package repl implements the interactive operator loop.
//
// Lines starting with ':' are commands:
//
//	:raw <spec>  send escaped bytes without approval and print the screen
//	:snap        print the current screen
//	:reset       restart the shell and clear the agent conversation
//	:help        list commands
//	:quit, :q    exit
//
// Every other non-empty line is a prompt for the agent. Standard input is
// read by a single LineReader shared with the approval prompt, so answers to
// "[y/N]" questions asked during a prompt are never taken as commands.
package repl
