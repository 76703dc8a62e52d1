// Copyright Project Contour Authors
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

package parentselect

// codeIsFailure reports whether code is classified as a retryable failure
// by the given response-code set.
func codeIsFailure(codes ResponseCodeSet, code int) bool {
	return codes.Contains(code)
}

// responseIsRetryable reports whether a response warrants another attempt:
// it must be a classified failure, and there must be attempts left under
// both the strategy's configured budget and the total parent count.
func responseIsRetryable(codes ResponseCodeSet, code int, attempts, maxSimpleRetries, numParents uint32) bool {
	return codeIsFailure(codes, code) && attempts < maxSimpleRetries && attempts < numParents
}

// onFailureMarkParentDown reports whether a response code should cause the
// parent that produced it to be marked down. The
// connection-failure sentinel is handled separately by callers, since it is
// not itself in the 500-599 range this predicate tests.
func onFailureMarkParentDown(code int) bool {
	return code >= 500 && code <= 599
}
