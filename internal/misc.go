// cafe: consensus and phasing of long sequencing reads.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package internal

import log "github.com/sirupsen/logrus"

// RecoverMessage turns a recovered panic value into a message. Values
// raised through logrus carry the message in the entry.
func RecoverMessage(r interface{}) string {
	switch v := r.(type) {
	case *log.Entry:
		return v.Message
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "unknown failure"
	}
}
