// Copyright 2025 CallWeave
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

// Package usage provides call-minute metering and pricing for CallWeave.
//
// Completed calls are metered per minute (partial minutes round up) with
// rates that vary by sector and plan. Costs are computed and stored in
// integer cents to avoid floating point drift in billing aggregates.
// Admin API calls are also recorded for per-tenant usage reporting.
package usage
