// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guid implements the mixed-endian GUID used to name firmware
// volumes, files and GUID-defined sections.
package guid

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// Size represents number of bytes in a GUID
	Size = 16
	// UExample is a example of a string GUID
	UExample = "01234567-89AB-CDEF-0123-456789ABCDEF"
)

// fields lists the byte width of each little-endian group.
var fields = [...]int{4, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1}

// GUID represents a unique identifier.
type GUID [Size]byte

// Zero is the all-zero GUID.
var Zero GUID

func reverse(b []byte) {
	for i := 0; i < len(b)/2; i++ {
		other := len(b) - i - 1
		b[other], b[i] = b[i], b[other]
	}
}

func swapFields(u *GUID) {
	i := 0
	for _, fieldlen := range fields {
		reverse(u[i : i+fieldlen])
		i += fieldlen
	}
}

// Parse parses a guid string. Hyphens are optional.
func Parse(s string) (*GUID, error) {
	stripped := strings.Replace(strings.TrimSpace(s), "-", "", -1)
	decoded, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("guid string not correct, need string of the format \n%v\n, got \n%v",
			UExample, s)
	}
	if len(decoded) != Size {
		return nil, fmt.Errorf("guid string has incorrect length, need string of the format \n%v\n, got \n%v",
			UExample, s)
	}

	u := GUID{}
	copy(u[:], decoded)
	swapFields(&u)
	return &u, nil
}

// MustParse parses a guid string or panics. It is meant for package level
// tables of well-known GUIDs.
func MustParse(s string) *GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// FromName derives a reproducible GUID from a name by hashing it.
func FromName(name string) GUID {
	var g GUID
	sum := sha1.Sum([]byte(name))
	copy(g[:], sum[:Size])
	return g
}

// IsZero reports whether every byte of the GUID is zero.
func (u GUID) IsZero() bool {
	return u == Zero
}

func (u GUID) String() string {
	// Value receiver, the swap happens on a copy.
	swapFields(&u)
	s := strings.ToUpper(hex.EncodeToString(u[:]))
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:]
}

// MarshalJSON implements the marshaller interface.
func (u *GUID) MarshalJSON() ([]byte, error) {
	return []byte(`{"GUID" : "` + u.String() + `"}`), nil
}

// UnmarshalJSON implements the unmarshaller interface.
func (u *GUID) UnmarshalJSON(b []byte) error {
	j := make(map[string]string)

	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	g, err := Parse(j["GUID"])
	if err != nil {
		return err
	}
	copy(u[:], g[:])
	return nil
}
