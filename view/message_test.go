// Copyright 2024-2025 LIFS Tools
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityIncludes(t *testing.T) {
	assert.True(t, SeverityError.Includes(SeverityError))
	assert.False(t, SeverityError.Includes(SeverityWarn))
	assert.False(t, SeverityError.Includes(SeverityInfo))

	assert.True(t, SeverityWarn.Includes(SeverityError))
	assert.True(t, SeverityWarn.Includes(SeverityWarn))
	assert.False(t, SeverityWarn.Includes(SeverityInfo))

	assert.True(t, SeverityInfo.Includes(SeverityError))
	assert.True(t, SeverityInfo.Includes(SeverityWarn))
	assert.True(t, SeverityInfo.Includes(SeverityInfo))
}

func TestParseSeverity(t *testing.T) {
	level, err := ParseSeverity("warn")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarn, level)

	_, err = ParseSeverity("loud")
	assert.Error(t, err)
}

func TestCompareMessagesOrdersByLineFirst(t *testing.T) {
	early := ValidationMessage{LineNumber: 3, MessageType: SeverityInfo, Code: "z"}
	late := ValidationMessage{LineNumber: 10, MessageType: SeverityError, Code: "a"}

	assert.Negative(t, CompareMessages(early, late))
	assert.Positive(t, CompareMessages(late, early))
}

func TestCompareMessagesNoLineSortsLast(t *testing.T) {
	withLine := ValidationMessage{LineNumber: 999, MessageType: SeverityError, Code: "a"}
	noLine := ValidationMessage{LineNumber: NoLineNumber, MessageType: SeverityError, Code: "a"}

	assert.Positive(t, CompareMessages(noLine, withLine))
	assert.Negative(t, CompareMessages(withLine, noLine))
}

func TestCompareMessagesTieBreaks(t *testing.T) {
	err := ValidationMessage{LineNumber: 5, MessageType: SeverityError, Code: "b"}
	warn := ValidationMessage{LineNumber: 5, MessageType: SeverityWarn, Code: "a"}
	assert.Negative(t, CompareMessages(err, warn), "severity outranks code on the same line")

	codeA := ValidationMessage{LineNumber: 5, MessageType: SeverityWarn, Code: "a"}
	codeB := ValidationMessage{LineNumber: 5, MessageType: SeverityWarn, Code: "b"}
	assert.Negative(t, CompareMessages(codeA, codeB))
	assert.Zero(t, CompareMessages(codeA, codeA))
}

func TestMessageSetDeduplicates(t *testing.T) {
	set := NewMessageSet()
	m := ValidationMessage{LineNumber: 4, MessageType: SeverityWarn, Code: "LogicalError-10004", Message: "first wording"}
	set.Add(m)
	// identical key, different free text: still the same message
	m.Message = "second wording"
	set.Add(m)

	require.Equal(t, 1, set.Len())
	assert.Equal(t, "first wording", set.Messages()[0].Message)
}

func TestMessageSetKeepsCollationOrder(t *testing.T) {
	set := NewMessageSet()
	set.AddAll([]ValidationMessage{
		{LineNumber: NoLineNumber, MessageType: SeverityError, Code: "rule_1"},
		{LineNumber: 7, MessageType: SeverityInfo, Code: "FormatError-10015"},
		{LineNumber: 7, MessageType: SeverityError, Code: "FormatError-10014"},
		{LineNumber: 2, MessageType: SeverityWarn, Code: "LogicalError-10004"},
	})

	messages := set.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, int64(2), messages[0].LineNumber)
	assert.Equal(t, int64(7), messages[1].LineNumber)
	assert.Equal(t, SeverityError, messages[1].MessageType)
	assert.Equal(t, int64(7), messages[2].LineNumber)
	assert.Equal(t, SeverityInfo, messages[2].MessageType)
	assert.Equal(t, NoLineNumber, messages[3].LineNumber)
}

func TestMessagesReturnsCopy(t *testing.T) {
	set := NewMessageSet()
	set.Add(ValidationMessage{LineNumber: 1, MessageType: SeverityError, Code: "a"})
	out := set.Messages()
	out[0].Code = "mutated"
	assert.Equal(t, "a", set.Messages()[0].Code)
}
