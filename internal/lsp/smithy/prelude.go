// Copyright 2024 Smithy Language Server Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package smithy

// PreludeNamespace is the namespace of the shapes and traits every model can
// reference without a use statement.
const PreludeNamespace = "smithy.api"

// preludeShapes are the simple and primitive shapes of smithy.api.
var preludeShapes = map[string]bool{
	"BigDecimal": true, "BigInteger": true, "Blob": true, "Boolean": true,
	"Byte": true, "Document": true, "Double": true, "Float": true,
	"Integer": true, "Long": true, "PrimitiveBoolean": true,
	"PrimitiveByte": true, "PrimitiveDouble": true, "PrimitiveFloat": true,
	"PrimitiveInteger": true, "PrimitiveLong": true, "PrimitiveShort": true,
	"Short": true, "String": true, "Timestamp": true, "Unit": true,
}

// preludeTraits are the trait shapes of smithy.api, keyed by their
// lower-camel names as they appear after '@'.
var preludeTraits = map[string]bool{
	"auth": true, "authDefinition": true, "clientOptional": true,
	"cors": true, "default": true, "deprecated": true, "documentation": true,
	"endpoint": true, "enum": true, "enumValue": true, "error": true,
	"eventHeader": true, "eventPayload": true, "examples": true,
	"externalDocumentation": true, "http": true, "httpApiKeyAuth": true,
	"httpBasicAuth": true, "httpBearerAuth": true, "httpChecksumRequired": true,
	"httpDigestAuth": true, "httpError": true, "httpHeader": true,
	"httpLabel": true, "httpPayload": true, "httpPrefixHeaders": true,
	"httpQuery": true, "httpQueryParams": true, "httpResponseCode": true,
	"idempotencyToken": true, "idempotent": true, "idRef": true,
	"input": true, "internal": true, "jsonName": true, "length": true,
	"mediaType": true, "mixin": true, "noReplace": true, "output": true,
	"paginated": true, "pattern": true, "private": true, "protocolDefinition": true,
	"range": true, "readonly": true, "recommended": true, "references": true,
	"required": true, "requiresLength": true, "resourceIdentifier": true,
	"retryable": true, "sensitive": true, "since": true, "sparse": true,
	"streaming": true, "suppress": true, "tags": true, "timestampFormat": true,
	"title": true, "trait": true, "uniqueItems": true, "unitType": true,
	"unstable": true, "xmlAttribute": true, "xmlFlattened": true,
	"xmlName": true, "xmlNamespace": true,
}

// IsPreludeShape reports whether name resolves into smithy.api without a use
// statement.
func IsPreludeShape(name string) bool {
	return preludeShapes[name] || preludeTraits[name]
}

// IsPreludeTrait reports whether name is a prelude trait name.
func IsPreludeTrait(name string) bool {
	return preludeTraits[name]
}

// PreludeShapeNames returns the non-trait prelude shape names, for
// completion candidates. The slice is freshly allocated.
func PreludeShapeNames() []string {
	out := make([]string, 0, len(preludeShapes))
	for n := range preludeShapes {
		out = append(out, n)
	}
	return out
}

// PreludeTraitNames returns the prelude trait names, for completion
// candidates. The slice is freshly allocated.
func PreludeTraitNames() []string {
	out := make([]string, 0, len(preludeTraits))
	for n := range preludeTraits {
		out = append(out, n)
	}
	return out
}
