/*
   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetWordSkipsLeadingSpaceAndLowercases(t *testing.T) {
	l := cmdLine{line: "  STEP 5"}
	require.Equal(t, "step", l.getWord())
	require.Equal(t, "5", l.rest())
}

func TestMatchListSingleLetterOnlyMatchesMinOneCommands(t *testing.T) {
	// "step" has min 1, so a bare "s" matches it; "stop" (min 2) and
	// "show" (min 2) both require at least two letters to disambiguate.
	m := matchList("s")
	require.Len(t, m, 1)
	require.Equal(t, "step", m[0].name)
}

func TestMatchListTwoLettersIsAmbiguousBetweenStepAndStop(t *testing.T) {
	m := matchList("st")
	require.Len(t, m, 2)
}

func TestMatchListThreeLettersResolvesToStop(t *testing.T) {
	m := matchList("sto")
	require.Len(t, m, 1)
	require.Equal(t, "stop", m[0].name)
}

func TestMatchListRejectsOverlongAbbreviation(t *testing.T) {
	m := matchList("steppe")
	require.Empty(t, m)
}

func TestMatchListEmptyNameMatchesNothing(t *testing.T) {
	require.Empty(t, matchList(""))
}

func TestProcessCommandUnknownNameErrors(t *testing.T) {
	_, err := ProcessCommand("bogus", nil)
	require.Error(t, err)
}

func TestProcessCommandAmbiguousAbbreviationErrors(t *testing.T) {
	_, err := ProcessCommand("st", nil)
	require.Error(t, err)
}
