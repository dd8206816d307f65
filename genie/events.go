/*
Copyright © 2025 Benny Powers

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package genie

// Bus is the event-bus collaborator the core emits progress events to.
// Rendering (CLI spinners, LSP notifications, ...) is an external
// collaborator's responsibility; the core only ever calls these methods.
type Bus interface {
	FilesDiscovered(sources []string)
	FileStarted(path string)
	FileCompleted(path string, status Status, message string)
	Complete(summary RunSummary)
	Error(message string)
}

// NoopBus is a Bus that discards every event. Useful as a default for
// library callers that don't care about progress reporting.
type NoopBus struct{}

func (NoopBus) FilesDiscovered(sources []string)                     {}
func (NoopBus) FileStarted(path string)                              {}
func (NoopBus) FileCompleted(path string, status Status, msg string) {}
func (NoopBus) Complete(summary RunSummary)                          {}
func (NoopBus) Error(message string)                                 {}
