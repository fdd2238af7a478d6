package core

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import "errors"

var (
	// ErrQueueFull is returned by SubmitWork when the backlog is at capacity.
	ErrQueueFull = errors.New("queue full")

	// ErrSchedulerShutdown is returned by SubmitWork once Close or Shutdown was called.
	ErrSchedulerShutdown = errors.New("scheduler shut down")

	// ErrOutput wraps failures of the results sink. Unlike probe failures
	// these abort the run.
	ErrOutput = errors.New("output error")

	// ErrInvalidWorkers is returned for a pool size below one.
	ErrInvalidWorkers = errors.New("worker count must be at least 1")
)
