// Copyright (c) VoxFlow Authors.
// Licensed under the MIT License.

/*
Package intent classifies free-form command text into ordered intents.

The classifier is a deterministic rule engine: each intent category owns a
set of weighted trigger patterns declared in rules.go, and a clause matches
the category whose triggers score highest (ties break by rule declaration
order). Compound commands are split into clauses first, so "find patient
Smith, order CBC, and send notification" yields three intents whose order
of mention is preserved as a planning hint.

Classification is idempotent and side-effect free: the same text always
yields the same intent list and confidences. When the top confidence falls
below the configured threshold the classifier reports an ambiguous result
instead of guessing; callers surface a clarification request and perform
zero capability invocations.
*/
package intent
