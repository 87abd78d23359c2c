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

// Package base defines the DataSource interface that every tenant data
// source implements, along with the shared request, result, and error
// types. Sector agents never talk to a backing system directly; they
// issue LookupRequests against whichever source the tenant's sector
// configuration binds, so swapping a tenant from the demo memory source
// to their production database is a configuration change only.
package base
